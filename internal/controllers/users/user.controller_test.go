package userController

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/testutil"
	"cleanbook/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, database.DB, UserControllerInterface) {
	t.Helper()

	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/enheter/923456789" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organisasjonsnummer": "923456789", "navn": "RENT HJEM AS",
			"forretningsadresse": {"adresse": ["Storgata 1"], "postnummer": "0155", "poststed": "OSLO"}}`))
	}))
	t.Cleanup(registry.Close)

	db := testutil.NewDB(t)
	repos := repositories.New(db)
	svc := services.Service{
		Transaction:     services.NewTransactionService(db),
		CompanyRegistry: services.NewCompanyRegistryService(registry.URL, nil),
	}
	return context.Background(), db, New(repos, svc, db)
}

func newUser(t *testing.T, db database.DB) *User {
	t.Helper()

	user := &User{AuthSubject: "user_onboarding", FirstName: "Kari", LastName: "Nordmann", IsActive: true}
	require.NoError(t, db.SQL.Create(user).Error)
	return user
}

func TestSetUserType(t *testing.T) {
	ctx, db, controller := setup(t)

	t.Run("landlord", func(t *testing.T) {
		user := newUser(t, db)

		me, err := controller.SetUserType(ctx, user, UserTypeLandlord)
		require.NoError(t, err)
		require.NotNil(t, me.User.UserType)
		assert.Equal(t, UserTypeLandlord, *me.User.UserType)
		require.NotNil(t, me.Landlord)
		assert.Equal(t, LandlordTypePrivate, me.Landlord.LandlordType)
		assert.Nil(t, me.Cleaner)

		again, err := controller.SetUserType(ctx, user, UserTypeLandlord)
		require.NoError(t, err)
		assert.Equal(t, me.Landlord.ID, again.Landlord.ID)
	})

	t.Run("cleaner", func(t *testing.T) {
		user := testutil.CreateUser(t, db, UserTypeLandlord)

		me, err := controller.SetUserType(ctx, user, UserTypeCleaner)
		require.NoError(t, err)
		require.NotNil(t, me.Cleaner)
		assert.Equal(t, CleanerStatusApproved, me.Cleaner.Status)
		assert.Equal(t, UserTypeCleaner, *user.UserType)
	})

	t.Run("invalid", func(t *testing.T) {
		user := testutil.CreateUser(t, db, UserTypeLandlord)

		_, err := controller.SetUserType(ctx, user, "admin")
		assert.ErrorIs(t, err, types.Validation(""))
	})
}

func TestOnboardLandlord_Company(t *testing.T) {
	ctx, db, controller := setup(t)
	user := testutil.CreateUser(t, db, UserTypeLandlord)

	landlord, err := controller.OnboardLandlord(ctx, user, OnboardLandlordRequest{
		LandlordType: LandlordTypeCompany,
		Company:      &CompanyInput{OrganizationNumber: "923 456 789"},
	})
	require.NoError(t, err)
	assert.Equal(t, LandlordTypeCompany, landlord.LandlordType)
	require.NotNil(t, landlord.CompanyID)
	require.NotNil(t, landlord.Company)
	assert.Equal(t, "RENT HJEM AS", landlord.Company.Name)
	assert.Equal(t, "OSLO", *landlord.Company.City)

	// a second onboarding with the same number updates the stored company
	second := testutil.CreateUser(t, db, UserTypeLandlord)
	other, err := controller.OnboardLandlord(ctx, second, OnboardLandlordRequest{
		LandlordType: LandlordTypeCompany,
		Company:      &CompanyInput{OrganizationNumber: "923456789", Name: "Rent Hjem AS"},
	})
	require.NoError(t, err)
	assert.Equal(t, *landlord.CompanyID, *other.CompanyID)

	var companies []Company
	require.NoError(t, db.SQL.Find(&companies).Error)
	require.Len(t, companies, 1)
	assert.Equal(t, "Rent Hjem AS", companies[0].Name)

	me, err := controller.GetMe(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, me.Landlord)
	require.NotNil(t, me.Landlord.Company)
}

func TestOnboardLandlord_Validation(t *testing.T) {
	ctx, db, controller := setup(t)
	user := testutil.CreateUser(t, db, UserTypeLandlord)

	testCases := []struct {
		name string
		req  OnboardLandlordRequest
		want error
	}{
		{"unknown type", OnboardLandlordRequest{LandlordType: "trust"}, types.Validation("")},
		{"company without details", OnboardLandlordRequest{LandlordType: LandlordTypeCompany}, types.Validation("")},
		{
			"company without org number",
			OnboardLandlordRequest{LandlordType: LandlordTypeCompany, Company: &CompanyInput{Name: "AS"}},
			types.Validation(""),
		},
		{
			"company unknown to the register",
			OnboardLandlordRequest{
				LandlordType: LandlordTypeCompany,
				Company:      &CompanyInput{OrganizationNumber: "999999999"},
			},
			types.NotFound(""),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := controller.OnboardLandlord(ctx, user, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOnboardLandlord_Private(t *testing.T) {
	ctx, db, controller := setup(t)
	user := newUser(t, db)

	landlord, err := controller.OnboardLandlord(ctx, user, OnboardLandlordRequest{LandlordType: LandlordTypePrivate})
	require.NoError(t, err)
	assert.Equal(t, LandlordTypePrivate, landlord.LandlordType)
	assert.Nil(t, landlord.CompanyID)
	assert.True(t, user.IsLandlord())
}
