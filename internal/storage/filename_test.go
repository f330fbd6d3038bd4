package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"notes.txt", "notes.txt"},
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system32.dll`, "windows_system32.dll"},
		{"Überraschung.mp4", "Uberraschung.mp4"},
		{"résumé final.pdf", "resume_final.pdf"},
		{"a;b&c|d.png", "abcd.png"},
		{".hidden", "hidden"},
		{"___", ""},
		{"日本語", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestAllowedFile(t *testing.T) {
	allowed := []string{"txt", "png"}

	assert.True(t, AllowedFile("a.txt", allowed))
	assert.True(t, AllowedFile("A.PNG", allowed))
	assert.False(t, AllowedFile("a.exe", allowed))
	assert.False(t, AllowedFile("txt", allowed))
	assert.False(t, AllowedFile("archive.txt.exe", allowed))
	assert.Equal(t, "gz", Extension("backup.tar.GZ"))
}
