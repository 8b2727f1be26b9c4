package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCleanStripsHostileInput(t *testing.T) {
	h := NewHandler(nil, nil, "", 20, zap.NewNop())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text kept", "Pertanyaan tentang pendaftaran", "Pertanyaan tentang pendaftaran"},
		{"script tag removed", `<script>alert("xss")</script>Halo`, "Halo"},
		{"inline markup removed", "Saya <b>sangat</b> tertarik", "Saya sangat tertarik"},
		{"img onerror removed", `<img src=x onerror=alert(1)>pesan`, "pesan"},
		{"whitespace trimmed", "  spasi  ", "spasi"},
		{"only markup becomes empty", "<script>alert(1)</script>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.clean(tt.input))
		})
	}
}

func TestValidMessageStatus(t *testing.T) {
	for _, s := range []string{"UNREAD", "READ", "ARCHIVED"} {
		assert.True(t, validMessageStatus(s), s)
	}
	assert.False(t, validMessageStatus("read"))
	assert.False(t, validMessageStatus("DELETED"))
	assert.False(t, validMessageStatus(""))
}
