package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeaves(t *testing.T) {
	tests := []struct {
		name string
		in   Set
		want Set
	}{
		{
			name: "nested chain",
			in:   NewSet("A", "A.B", "A.B.C", "D"),
			want: Set{"A.B.C", "D"},
		},
		{
			name: "siblings kept",
			in:   NewSet("A.B", "A.C", "A"),
			want: Set{"A.B", "A.C"},
		},
		{
			name: "shared text prefix is not nesting",
			in:   NewSet("A", "AB", "A.B"),
			want: Set{"A.B", "AB"},
		},
		{
			name: "case differs",
			in:   NewSet("a", "A.B"),
			want: Set{"A.B", "a"},
		},
		{
			name: "empty",
			in:   Set{},
			want: Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Leaves(tt.in))
		})
	}
}

func TestLeaves_Idempotent(t *testing.T) {
	in := NewSet("X", "X.Y", "X.Y.Z", "X.W", "Q.R", "Q", "Q.R.S.T")
	once := Leaves(in)
	assert.Equal(t, once, Leaves(once))
	assert.Equal(t, Set{"Q.R.S.T", "X.W", "X.Y.Z"}, once)
}
