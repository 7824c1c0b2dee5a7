package classify

import (
	"strings"
	"testing"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

func TestByExtension(t *testing.T) {
	cases := []struct {
		ext      string
		category string
		fileType string
	}{
		{"jpg", CategoryImages, vfs.TypeImage},
		{"heic", CategoryImages, vfs.TypeImage},
		{"mkv", CategoryVideos, vfs.TypeVideo},
		{"flac", CategoryAudios, vfs.TypeAudio},
		{"md", CategoryNotes, vfs.TypeText},
		{"pdf", CategoryDocuments, vfs.TypeDocument},
		{"", CategoryDocuments, vfs.TypeDocument},
		{"xyz", CategoryDocuments, vfs.TypeDocument},
	}
	for _, c := range cases {
		got := ByExtension(c.ext)
		if got.Category != c.category || got.FileType != c.fileType {
			t.Errorf("ByExtension(%q) = %+v, want %s/%s", c.ext, got, c.category, c.fileType)
		}
	}
}

func TestExtensionHelpers(t *testing.T) {
	if got := NormalizeExtension(" .JPG "); got != "jpg" {
		t.Errorf("NormalizeExtension = %q", got)
	}
	if got := ExtensionFromName("report.final.PDF"); got != "pdf" {
		t.Errorf("ExtensionFromName = %q", got)
	}
	if got := ExtensionFromName("noext"); got != "" {
		t.Errorf("ExtensionFromName(noext) = %q", got)
	}
	if got := ExtensionFromName(".hidden"); got != "" {
		t.Errorf("ExtensionFromName(.hidden) = %q", got)
	}
	if got := ExtensionFromMime("Image/JPEG"); got != "jpg" {
		t.Errorf("ExtensionFromMime = %q", got)
	}
	if got := ExtensionFromMime("application/unknown"); got != "" {
		t.Errorf("ExtensionFromMime unknown = %q", got)
	}
	if got := DefaultExtension(vfs.TypeVideo); got != "mp4" {
		t.Errorf("DefaultExtension = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`a/b\c:d*e?f"g<h>i|j`); got != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName("   "); got != "upload.bin" {
		t.Errorf("empty name = %q", got)
	}
	if got := SanitizedOrEmpty("  "); got != "" {
		t.Errorf("SanitizedOrEmpty = %q", got)
	}
}

func TestGeneratedAndFallbackNames(t *testing.T) {
	name := GeneratedFileName(vfs.TypeImage, "jpg")
	if !strings.HasPrefix(name, "image_") || !strings.HasSuffix(name, ".jpg") {
		t.Errorf("GeneratedFileName = %q", name)
	}
	if GeneratedFileName(vfs.TypeImage, "jpg") == name {
		t.Error("generated names should be unique")
	}

	if got := FallbackNonMediaName(42, vfs.TypeText, "txt"); got != "note_42.txt" {
		t.Errorf("text fallback = %q", got)
	}
	if got := FallbackNonMediaName(42, vfs.TypeDocument, ""); got != "message_42" {
		t.Errorf("document fallback = %q", got)
	}
}

func TestUniqueIDs(t *testing.T) {
	if got := MessageUniqueID(777, 42); got != "msg_777_42" {
		t.Errorf("MessageUniqueID = %q", got)
	}
	got := FolderUniqueID("alice", "/Home", "My Docs")
	if got != "folder_alice__Home_My_Docs" {
		t.Errorf("FolderUniqueID = %q", got)
	}
	if FolderUniqueID("alice", "/Home", "My Docs") != got {
		t.Error("folder ids must be deterministic")
	}
}
