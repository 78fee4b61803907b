package flagx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "client.json", "-s", "http://localhost:8080"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "client.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-q", "0.5"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag at end without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-config=alt.json"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "-config=alt.json"},
		},
		{
			name:    "repeated flag preserved in order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("FilterArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/a.json", ConfigPath([]string{"-c", "/etc/a.json"}))
	assert.Equal(t, "/etc/b.json", ConfigPath([]string{"-q", "0.7", "-config", "/etc/b.json"}))
	assert.Equal(t, "/etc/c.json", ConfigPath([]string{"--config=/etc/c.json"}))
	assert.Equal(t, "/2.json", ConfigPath([]string{"-c", "/1.json", "-config", "/2.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
	assert.Empty(t, ConfigPath(nil))
}

func TestWithoutConfig(t *testing.T) {
	got := WithoutConfig([]string{"-c", "a.json", "-q", "0.5", "-config=b.json", "-v"})
	if diff := cmp.Diff([]string{"-q", "0.5", "-v"}, got); diff != "" {
		t.Fatalf("WithoutConfig() mismatch (-want +got):\n%s", diff)
	}
}
