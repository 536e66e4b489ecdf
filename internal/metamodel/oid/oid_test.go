package oid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Oid
		wantErr bool
	}{
		{name: "transient", in: "T:1", want: NewTransient("1")},
		{name: "persistent", in: "P:abc", want: NewPersistent("abc")},
		{name: "aggregated", in: "A:P:7~address", want: AggregatedOid{Parent: NewPersistent("7"), Field: "address"}},
		{name: "no marker", in: "7", wantErr: true},
		{name: "aggregated without field", in: "A:P:7", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestAggregatedOid_Transience(t *testing.T) {
	assert.True(t, AggregatedOid{Parent: NewTransient("1"), Field: "x"}.IsTransient())
	assert.False(t, AggregatedOid{Parent: NewPersistent("1"), Field: "x"}.IsTransient())
	assert.False(t, AggregatedOid{Field: "x"}.IsTransient())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(NewTransient("1"), NewTransient("1")))
	assert.False(t, Equal(NewTransient("1"), NewPersistent("1")))
	assert.False(t, Equal(NewTransient("1"), nil))
	assert.True(t, Equal(nil, nil))
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}

	first := gen.NextTransient()
	second := gen.NextTransient()
	assert.True(t, first.IsTransient())
	assert.NotEqual(t, first, second)

	persistent := gen.NextPersistent().(SerialOid)
	assert.False(t, persistent.IsTransient())
	_, err := uuid.Parse(persistent.Serial)
	assert.NoError(t, err)
}
