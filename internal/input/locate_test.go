package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		keyCodes []int
		wantKind DeviceKind
		wantOK   bool
	}{
		{"typical keyboard", []int{1, 2, 3, 28, 30, 48}, Keyboard, true},
		{"single sample key", []int{30}, Keyboard, true},
		{"typical mouse", []int{0x110, 0x111, 0x112}, Pointer, true},
		{"buttons win over keys", []int{30, 28, 0x110}, Pointer, true},
		{"media keys only", []int{113, 114, 115}, 0, false},
		{"no keys at all", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(map[int]bool, len(tt.keyCodes))
			for _, c := range tt.keyCodes {
				codes[c] = true
			}
			kind, ok := classify(codes)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantKind, kind)
			}
		})
	}
}

func TestDeviceKindString(t *testing.T) {
	assert.Equal(t, "keyboard", Keyboard.String())
	assert.Equal(t, "pointer", Pointer.String())
}
