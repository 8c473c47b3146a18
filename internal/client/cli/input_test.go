package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubTerminal(t *testing.T, terminal bool, read func(int) ([]byte, error)) {
	t.Helper()
	oldTerm, oldRead := isTerminal, readPassword
	isTerminal = func(int) bool { return terminal }
	if read != nil {
		readPassword = read
	}
	t.Cleanup(func() { isTerminal, readPassword = oldTerm, oldRead })
}

func TestGetSecret(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		input    string
		read     func(int) ([]byte, error)
		want     string
		wantErr  bool
	}{
		{
			name:     "terminal without echo",
			terminal: true,
			read:     func(int) ([]byte, error) { return []byte(" 1234 "), nil },
			want:     "1234",
		},
		{
			name:     "terminal error",
			terminal: true,
			read:     func(int) ([]byte, error) { return nil, errors.New("boom") },
			wantErr:  true,
		},
		{
			name:  "piped input falls back to line",
			input: "5678\n",
			read: func(int) ([]byte, error) {
				return nil, errors.New("must not be called")
			},
			want: "5678",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stubTerminal(t, tc.terminal, tc.read)
			var out bytes.Buffer
			got, err := GetSecret(rdr(tc.input), "PIN", &out)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Contains(t, out.String(), "PIN")
		})
	}
}
