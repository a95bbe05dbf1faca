package submit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocator(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "lowercases host",
			raw:  "https://GitHub.com/sevigo/docwarden",
			want: "https://github.com/sevigo/docwarden",
		},
		{
			name: "strips www prefix",
			raw:  "https://www.github.com/sevigo/docwarden",
			want: "https://github.com/sevigo/docwarden",
		},
		{
			name: "strips trailing slash",
			raw:  "https://github.com/sevigo/docwarden/",
			want: "https://github.com/sevigo/docwarden",
		},
		{
			name: "strips .git suffix",
			raw:  "https://github.com/sevigo/docwarden.git",
			want: "https://github.com/sevigo/docwarden",
		},
		{
			name: "strips default https port",
			raw:  "https://github.com:443/sevigo/docwarden",
			want: "https://github.com/sevigo/docwarden",
		},
		{
			name: "strips default http port",
			raw:  "http://github.com:80/sevigo/docwarden",
			want: "http://github.com/sevigo/docwarden",
		},
		{
			name: "keeps non-default port",
			raw:  "https://github.example.com:8443/sevigo/docwarden",
			want: "https://github.example.com:8443/sevigo/docwarden",
		},
		{
			name:    "empty locator",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "missing scheme",
			raw:     "github.com/sevigo/docwarden",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			raw:     "git://github.com/sevigo/docwarden",
			wantErr: true,
		},
		{
			name:    "no repository path",
			raw:     "https://github.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeLocator(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLocatorIsIdempotent(t *testing.T) {
	variants := []string{
		"https://GitHub.com/Sevigo/docwarden.git",
		"https://www.github.com/Sevigo/docwarden/",
		"https://github.com:443/Sevigo/docwarden",
	}

	var canonical string
	for i, raw := range variants {
		got, err := NormalizeLocator(raw)
		assert.NoError(t, err)
		if i == 0 {
			canonical = got
		} else {
			assert.Equal(t, canonical, got, "equivalent locators must normalize identically")
		}
	}
}
