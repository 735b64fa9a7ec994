package size

import (
	"context"
	"errors"
	"testing"

	jujuerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/size/mocks"
)

var _ Catalog = (*mocks.Catalog)(nil)

var ref = node.Ref{Name: "web-01", Provider: "azure-dev"}

func catalogOf(sizes ...string) *mocks.Catalog {
	c := new(mocks.Catalog)
	c.On("ListSizes", mock.Anything).Return(sizes, nil)
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		wantErr   bool
	}{
		{"present", "Standard_B2s", false},
		{"absent", "Standard_Z99", true},
		{"case sensitive", "standard_b2s", true},
		{"prefix only", "Standard_B2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(catalogOf("Standard_B1s", "Standard_B2s", "Standard_D4s_v5"), nil)

			err := v.Validate(context.Background(), ref, tt.requested)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *node.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, node.KeySize, cfgErr.Field)
			assert.Equal(t, tt.requested, cfgErr.Value)
			assert.True(t, jujuerrors.Is(err, jujuerrors.NotValid))
		})
	}
}

func TestValidate_emptySkipsCatalog(t *testing.T) {
	c := new(mocks.Catalog)

	err := NewValidator(c, nil).Validate(context.Background(), ref, "")

	assert.NoError(t, err)
	c.AssertNotCalled(t, "ListSizes", mock.Anything)
}

func TestValidate_catalogErrorIsWrapped(t *testing.T) {
	cause := errors.New("throttled")
	c := new(mocks.Catalog)
	c.On("ListSizes", mock.Anything).Return(nil, cause)

	err := NewValidator(c, nil).Validate(context.Background(), ref, "Standard_B2s")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, node.KindUnknown, node.KindOf(err))
}

func TestValidate_events(t *testing.T) {
	var got []event.Event
	obs := event.ObserverFunc(func(e event.Event) { got = append(got, e) })

	require.NoError(t, NewValidator(catalogOf("Standard_B2s"), obs).Validate(context.Background(), ref, "Standard_B2s"))
	require.Len(t, got, 2)
	assert.Equal(t, event.SizeLookup, got[0].Type)
	assert.Equal(t, event.SizeValidated, got[1].Type)
	assert.Equal(t, "1", got[1].Field("catalog"))
	assert.Equal(t, "azure-dev", got[1].Provider)

	got = nil
	require.Error(t, NewValidator(catalogOf("Standard_B2s"), obs).Validate(context.Background(), ref, "Standard_X"))
	require.Len(t, got, 2)
	assert.Equal(t, event.SizeFailed, got[1].Type)
	assert.Equal(t, node.KindConfiguration, got[1].Field("kind"))
}
