package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkdex/ingest-cli/internal/model"
)

type fakeAction struct {
	name string
	runs int
}

func (a *fakeAction) Name() string { return a.name }

func (a *fakeAction) Run(context.Context) (*model.IngestRun, error) {
	a.runs++
	return &model.IngestRun{ID: a.name, Status: model.RunStatusComplete}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeAction{name: "places"})
	reg.Register(&fakeAction{name: "boundaries"})

	a, err := reg.Get("places")
	require.NoError(t, err)
	assert.Equal(t, "places", a.Name())

	run, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "places", run.ID)
}

func TestRegistry_UnknownAction(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeAction{name: "places"})
	reg.Register(&fakeAction{name: "boundaries"})

	_, err := reg.Get("linkedin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "linkedin"`)
	assert.Contains(t, err.Error(), "places, boundaries")
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeAction{name: "c"})
	reg.Register(&fakeAction{name: "a"})
	reg.Register(&fakeAction{name: "b"})

	assert.Equal(t, []string{"c", "a", "b"}, reg.Names())
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	first := &fakeAction{name: "places"}
	second := &fakeAction{name: "places"}
	reg.Register(first)
	reg.Register(second)

	a, err := reg.Get("places")
	require.NoError(t, err)
	require.Same(t, second, a)
	assert.Equal(t, []string{"places"}, reg.Names())
}
