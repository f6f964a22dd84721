package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Apply(t *testing.T) {
	all := NewSet(
		"Root",
		"Root.A",
		"Root.A.B",
		"Root.AB",
		"RootX.B",
		"Other.C",
		"Contoso.Internal",
		"Contoso.Billing",
		"Contoso.Billing.Internal",
		"Contoso.Billing.Internal.Sub",
		"Contoso.InternalTools",
	)

	tests := []struct {
		name   string
		filter Filter
		want   Set
	}{
		{
			name:   "empty filter keeps everything",
			filter: Filter{},
			want:   all,
		},
		{
			name:   "root keeps strict descendants only",
			filter: Filter{Root: "Root"},
			want:   Set{"Root.A", "Root.A.B", "Root.AB"},
		},
		{
			name:   "plain exclusion is an ordinal prefix",
			filter: Filter{Root: "Root", Exclude: []string{"Root.A"}},
			want:   Set{},
		},
		{
			name:   "dotted exclusion keeps text siblings",
			filter: Filter{Root: "Root", Exclude: []string{"Root.A."}},
			want:   Set{"Root.A", "Root.AB"},
		},
		{
			name:   "glob exclusion drops matching subtrees",
			filter: Filter{Root: "Contoso", Exclude: []string{"Contoso.**.Internal"}},
			want:   Set{"Contoso.Billing", "Contoso.InternalTools"},
		},
		{
			name:   "several exclusions",
			filter: Filter{Exclude: []string{"Contoso", "Root.", "*.C"}},
			want:   Set{"Root", "RootX.B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Apply(all))
		})
	}
}

func TestFilter_RootNotAFullMatch(t *testing.T) {
	f := Filter{Root: "Root"}
	assert.False(t, f.Keep("Root"))
	assert.False(t, f.Keep("RootX.A"))
	assert.True(t, f.Keep("Root.X"))
}

func TestValidPattern(t *testing.T) {
	assert.True(t, ValidPattern("Contoso.Billing"))
	assert.True(t, ValidPattern("Contoso.*.Tests"))
	assert.False(t, ValidPattern("Contoso.[Billing"))
	assert.False(t, IsGlob("Contoso.Billing"))
	assert.True(t, IsGlob("Contoso.?"))
}
