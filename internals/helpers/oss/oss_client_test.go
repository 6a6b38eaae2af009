package helper

import "testing"

func TestJoinKey(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"racehub", "qr/", "/a.png"}, "racehub/qr/a.png"},
		{[]string{"", "qr", "a.png"}, "qr/a.png"},
		{[]string{" ", ""}, ""},
	}
	for _, tt := range tests {
		if got := JoinKey(tt.parts...); got != tt.want {
			t.Errorf("JoinKey(%q) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name, base, endpoint, bucket, key, want string
	}{
		{"cdn", "https://cdn.racehub.id/", "oss-ap-southeast-5.aliyuncs.com", "racehub", "qr/a.png", "https://cdn.racehub.id/qr/a.png"},
		{"endpoint", "", "https://oss-ap-southeast-5.aliyuncs.com", "racehub", "qr/a.png", "https://racehub.oss-ap-southeast-5.aliyuncs.com/qr/a.png"},
		{"empty key", "https://cdn.racehub.id", "", "", "", ""},
		{"no bucket", "", "oss-ap-southeast-5.aliyuncs.com", "", "qr/a.png", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.base, tt.endpoint, tt.bucket, tt.key); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
