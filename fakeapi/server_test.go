package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/reactivities/clients/apiclient"
)

func newTestClient(t *testing.T, opts ...Option) (*Server, *apiclient.Client) {
	t.Helper()
	fake := New(append([]Option{WithViewer("bob")}, opts...)...)
	Seed(fake)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL + "/api")
	require.NoError(t, err)
	return fake, client
}

func statusCode(err error) int {
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func TestServer_Activities(t *testing.T) {
	fake, client := newTestClient(t)
	ctx := context.Background()

	list, err := client.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "future-1", list[0].ID)

	require.NoError(t, client.CreateActivity(ctx, apiclient.Activity{ID: "new", Title: "New", Date: "2024-08-01T10:00:00"}))
	created, ok := fake.Activity("new")
	require.True(t, ok)
	require.Len(t, created.Attendees, 1)
	assert.Equal(t, "bob", created.Attendees[0].Username)
	assert.True(t, created.Attendees[0].IsHost)

	require.NoError(t, client.UpdateActivity(ctx, apiclient.Activity{ID: "new", Title: "Renamed"}))
	got, err := client.ActivityDetails(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Len(t, got.Attendees, 1)

	require.NoError(t, client.DeleteActivity(ctx, "new"))
	_, err = client.ActivityDetails(ctx, "new")
	assert.Equal(t, http.StatusNotFound, statusCode(err))

	assert.Equal(t, 1, fake.Requests(RouteListActivities))
	assert.Equal(t, 2, fake.Requests(RouteActivityDetails))
}

func TestServer_CreateValidation(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	err := client.CreateActivity(ctx, apiclient.Activity{Title: "no id"})
	assert.Equal(t, http.StatusBadRequest, statusCode(err))

	err = client.CreateActivity(ctx, apiclient.Activity{ID: "past-1", Title: "dup"})
	assert.Equal(t, http.StatusBadRequest, statusCode(err))
}

func TestServer_Attendance(t *testing.T) {
	fake, client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.AttendActivity(ctx, "future-1"))
	a, _ := fake.Activity("future-1")
	assert.Len(t, a.Attendees, 2)

	assert.Equal(t, http.StatusBadRequest, statusCode(client.AttendActivity(ctx, "future-1")))

	require.NoError(t, client.UnattendActivity(ctx, "future-1"))
	a, _ = fake.Activity("future-1")
	assert.Len(t, a.Attendees, 1)

	// Hosts cannot leave their own activity.
	assert.Equal(t, http.StatusBadRequest, statusCode(client.UnattendActivity(ctx, "past-1")))
}

func TestServer_FailNext(t *testing.T) {
	fake, client := newTestClient(t)
	ctx := context.Background()

	fake.FailNext(RouteListActivities, http.StatusInternalServerError)
	fake.FailNext(RouteListActivities, http.StatusServiceUnavailable)

	_, err := client.ListActivities(ctx)
	assert.Equal(t, http.StatusInternalServerError, statusCode(err))
	_, err = client.ListActivities(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(err))
	_, err = client.ListActivities(ctx)
	assert.NoError(t, err)

	assert.Equal(t, 3, fake.Requests(RouteListActivities))
}

func TestServer_CurrentUserAndTokens(t *testing.T) {
	fake, client := newTestClient(t)
	ctx := context.Background()

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, TokenFor("bob"), user.Token)

	client.SetToken(TokenFor("jane"))
	user, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)

	client.SetToken("")
	fake.SetViewer("")
	_, err = client.CurrentUser(ctx)
	assert.Equal(t, http.StatusUnauthorized, statusCode(err))
}

func TestServer_Profiles(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	p, err := client.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, p.FollowersCount)
	assert.Equal(t, 1, p.FollowingCount)
	assert.False(t, p.Following)

	tom, err := client.GetProfile(ctx, "tom")
	require.NoError(t, err)
	assert.True(t, tom.Following)

	_, err = client.GetProfile(ctx, "nobody")
	assert.Equal(t, http.StatusNotFound, statusCode(err))

	require.NoError(t, client.EditProfile(ctx, apiclient.ProfileDetails{DisplayName: "Robert", Bio: "new"}))
	p, err = client.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Robert", p.DisplayName)

	err = client.EditProfile(ctx, apiclient.ProfileDetails{})
	assert.Equal(t, http.StatusBadRequest, statusCode(err))
}

func TestServer_Follow(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Follow(ctx, "jane"))
	assert.Equal(t, http.StatusBadRequest, statusCode(client.Follow(ctx, "jane")))
	assert.Equal(t, http.StatusBadRequest, statusCode(client.Follow(ctx, "bob")))

	followers, err := client.ListFollowings(ctx, "jane", apiclient.Followers)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "bob", followers[0].Username)

	following, err := client.ListFollowings(ctx, "bob", apiclient.Following)
	require.NoError(t, err)
	assert.Len(t, following, 2)

	require.NoError(t, client.Unfollow(ctx, "jane"))
	assert.Equal(t, http.StatusBadRequest, statusCode(client.Unfollow(ctx, "jane")))
}

func TestServer_Photos(t *testing.T) {
	fake, client := newTestClient(t)
	ctx := context.Background()

	photo, err := client.UploadPhoto(ctx, "beach.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.False(t, photo.IsMain)
	assert.True(t, strings.HasSuffix(photo.URL, "/beach.jpg"))

	require.NoError(t, client.SetMainPhoto(ctx, photo.ID))
	p, _ := fake.Profile("bob")
	assert.Equal(t, photo.URL, p.Image)
	main, ok := p.MainPhoto()
	require.True(t, ok)
	assert.Equal(t, photo.ID, main.ID)

	assert.Equal(t, http.StatusBadRequest, statusCode(client.DeletePhoto(ctx, photo.ID)))
	require.NoError(t, client.DeletePhoto(ctx, "bob-1"))
	assert.Equal(t, http.StatusNotFound, statusCode(client.DeletePhoto(ctx, "bob-1")))

	p, _ = fake.Profile("bob")
	assert.Len(t, p.Photos, 1)
}

func TestServer_FirstPhotoIsMain(t *testing.T) {
	fake, client := newTestClient(t, WithViewer("jane"))

	photo, err := client.UploadPhoto(context.Background(), "me.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, photo.IsMain)

	p, _ := fake.Profile("jane")
	assert.Equal(t, photo.URL, p.Image)
}
