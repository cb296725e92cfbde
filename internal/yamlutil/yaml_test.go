package yamlutil_test

// Notes:
// - MaxInputSize is a package variable; the size test does not mutate it and
//   builds input just above the limit instead.

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-sitesnap/internal/yamlutil"
)

type captureSection struct {
	Workers    int    `yaml:"workers"`
	MaxRetries int    `yaml:"maxRetries"`
	Sheet      string `yaml:"sheet"`
}

// ---------------------------------------------------------------------------
// TestUnmarshal - Lenient decoding
// ---------------------------------------------------------------------------

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		want    captureSection
	}{
		{
			name: "valid YAML",
			data: []byte("workers: 5\nmaxRetries: 3\nsheet: sheet1"),
			dest: &captureSection{},
			want: captureSection{Workers: 5, MaxRetries: 3, Sheet: "sheet1"},
		},
		{
			name: "unknown fields ignored",
			data: []byte("workers: 2\nunknown: true"),
			dest: &captureSection{},
			want: captureSection{Workers: 2},
		},
		{
			name: "unicode value",
			data: []byte("sheet: 网站列表"),
			dest: &captureSection{},
			want: captureSection{Sheet: "网站列表"},
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &captureSection{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("workers: 1"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
		{
			name:    "input too large",
			data:    []byte("sheet: " + strings.Repeat("x", yamlutil.MaxInputSize)),
			dest:    &captureSection{},
			wantErr: yamlutil.ErrInputTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.Unmarshal(tt.data, tt.dest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := *tt.dest.(*captureSection)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Rejects unknown fields
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	t.Run("known fields decode", func(t *testing.T) {
		t.Parallel()

		var got captureSection
		if err := yamlutil.UnmarshalStrict([]byte("workers: 4"), &got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Workers != 4 {
			t.Errorf("Workers = %d, want 4", got.Workers)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()

		var got captureSection
		err := yamlutil.UnmarshalStrict([]byte("workers: 4\nthreads: 9"), &got)
		if err == nil {
			t.Fatal("expected error for unknown field, got nil")
		}
		if !strings.HasPrefix(err.Error(), "yamlutil:") {
			t.Errorf("error = %q, want yamlutil prefix", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		var got captureSection
		if err := yamlutil.UnmarshalStrict([]byte("workers: [1"), &got); err == nil {
			t.Fatal("expected error for malformed YAML, got nil")
		}
	})
}
