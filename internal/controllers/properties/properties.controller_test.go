package propertiesController

import (
	"context"
	"testing"

	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/testutil"
	"cleanbook/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() CreatePropertyRequest {
	bedrooms := 2
	return CreatePropertyRequest{
		Name:       " Hytte på Geilo ",
		Type:       PropertyTypeHytte,
		Address:    "Fjellveien 4",
		PostalCode: "3580",
		City:       "Geilo",
		SizeSqm:    85,
		Bedrooms:   &bedrooms,
	}
}

func TestPropertiesController_CRUD(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	controller := New(repositories.New(db), db)
	owner := testutil.CreateUser(t, db, UserTypeLandlord)

	created, err := controller.Create(ctx, owner, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Hytte på Geilo", created.Name)
	assert.True(t, created.IsActive)

	listed, err := controller.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	size := 120
	name := "Hytte Geilo"
	updated, err := controller.Update(ctx, owner, created.ID, UpdatePropertyRequest{Name: &name, SizeSqm: &size})
	require.NoError(t, err)
	assert.Equal(t, "Hytte Geilo", updated.Name)
	assert.Equal(t, 120, updated.SizeSqm)
	assert.Equal(t, "Fjellveien 4", updated.Address)

	require.NoError(t, controller.Delete(ctx, owner, created.ID))

	listed, err = controller.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = controller.Get(ctx, owner, created.ID)
	assert.ErrorIs(t, err, types.NotFound(""))
}

func TestPropertiesController_OwnerChecks(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	controller := New(repositories.New(db), db)
	owner := testutil.CreateUser(t, db, UserTypeLandlord)
	stranger := testutil.CreateUser(t, db, UserTypeLandlord)
	cleaner := testutil.CreateUser(t, db, UserTypeCleaner)

	_, err := controller.Create(ctx, cleaner, validRequest())
	assert.ErrorIs(t, err, types.Forbidden(""))

	property, err := controller.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	_, err = controller.Get(ctx, stranger, property.ID)
	assert.ErrorIs(t, err, types.NotFound(""))

	name := "Overtatt"
	_, err = controller.Update(ctx, stranger, property.ID, UpdatePropertyRequest{Name: &name})
	assert.ErrorIs(t, err, types.NotFound(""))

	assert.ErrorIs(t, controller.Delete(ctx, stranger, property.ID), types.NotFound(""))

	stored, err := controller.Get(ctx, owner, property.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hytte på Geilo", stored.Name)
}

func TestPropertiesController_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	controller := New(repositories.New(db), db)
	owner := testutil.CreateUser(t, db, UserTypeLandlord)
	negative := -1

	testCases := []struct {
		name   string
		mutate func(req *CreatePropertyRequest)
	}{
		{"missing name", func(req *CreatePropertyRequest) { req.Name = "  " }},
		{"missing address", func(req *CreatePropertyRequest) { req.Address = "" }},
		{"unknown type", func(req *CreatePropertyRequest) { req.Type = "castle" }},
		{"zero size", func(req *CreatePropertyRequest) { req.SizeSqm = 0 }},
		{"too large", func(req *CreatePropertyRequest) { req.SizeSqm = 301 }},
		{"negative bedrooms", func(req *CreatePropertyRequest) { req.Bedrooms = &negative }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := controller.Create(ctx, owner, req)
			assert.ErrorIs(t, err, types.Validation(""))
		})
	}
}
