package profilestore

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/fakeapi"
	"github.com/nomis52/reactivities/logging"
	"github.com/nomis52/reactivities/notice"
)

// fakeViewer records the updates pushed to the signed-in user.
type fakeViewer struct {
	mu     sync.Mutex
	user   apiclient.User
	images []string
	names  []string
}

func (v *fakeViewer) User() (apiclient.User, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.user, v.user.Username != ""
}

func (v *fakeViewer) SetImage(ctx context.Context, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.user.Image = url
	v.images = append(v.images, url)
}

func (v *fakeViewer) SetDisplayName(ctx context.Context, name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.user.DisplayName = name
	v.names = append(v.names, name)
}

type fixture struct {
	store  *Store
	fake   *fakeapi.Server
	client *apiclient.Client
	viewer *fakeViewer
	board  *notice.Board
}

func newFixture(t *testing.T, viewer string, extra ...apiclient.Profile) *fixture {
	t.Helper()

	fake := fakeapi.New(fakeapi.WithViewer(viewer))
	fakeapi.Seed(fake)
	for _, p := range extra {
		fake.AddUser(p)
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL + "/api")
	require.NoError(t, err)

	return newFixtureWithAPI(t, client, fake, viewer)
}

func newFixtureWithAPI(t *testing.T, api API, fake *fakeapi.Server, viewer string) *fixture {
	t.Helper()

	v := &fakeViewer{user: apiclient.User{Username: viewer, DisplayName: viewer}}
	board := notice.New(logging.Discard())
	runner := action.NewRunner("profile", action.WithNotices(board))
	store := New(api, v, runner, logging.Discard())
	t.Cleanup(store.Close)

	client, _ := api.(*apiclient.Client)
	return &fixture{store: store, fake: fake, client: client, viewer: v, board: board}
}

func (f *fixture) load(t *testing.T, username string) {
	t.Helper()
	result := f.store.LoadProfile(context.Background(), username)
	require.True(t, result.OK(), result.String())
}

func (f *fixture) noticeMessages() []string {
	var messages []string
	for _, n := range f.board.All() {
		messages = append(messages, n.Message)
	}
	return messages
}

func assertIdle(t *testing.T, st State) {
	t.Helper()
	assert.False(t, st.LoadingProfile.On(), "loadingProfile")
	assert.False(t, st.UploadingPhoto.On(), "uploadingPhoto")
	assert.False(t, st.Loading.On(), "loading")
	assert.False(t, st.Deleting.On(), "deleting")
	assert.False(t, st.FollowingsLoading.On(), "followingsLoading")
}

func mainPhotos(p *apiclient.Profile) []string {
	var ids []string
	for _, photo := range p.Photos {
		if photo.IsMain {
			ids = append(ids, photo.ID)
		}
	}
	return ids
}

func usernames(profiles []apiclient.Profile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Username)
	}
	return names
}

func TestLoadProfile(t *testing.T) {
	tests := []struct {
		name          string
		viewer        string
		username      string
		wantFollowing bool
		wantFollowers int
		wantFollows   int
	}{
		{name: "own profile", viewer: "bob", username: "bob", wantFollowers: 2, wantFollows: 1},
		{name: "followed profile", viewer: "jane", username: "bob", wantFollowing: true, wantFollowers: 2, wantFollows: 1},
		{name: "unfollowed profile", viewer: "bob", username: "jane", wantFollowers: 0, wantFollows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.viewer)
			f.load(t, tt.username)

			st := f.store.Snapshot()
			assertIdle(t, st)
			require.NotNil(t, st.Profile)
			assert.Equal(t, tt.username, st.Profile.Username)
			assert.Equal(t, tt.wantFollowing, st.Profile.Following)
			assert.Equal(t, tt.wantFollowers, st.Profile.FollowersCount)
			assert.Equal(t, tt.wantFollows, st.Profile.FollowingCount)
			assert.Equal(t, tt.viewer == tt.username, f.store.IsCurrentUser())
		})
	}
}

func TestLoadProfile_NotFound(t *testing.T) {
	f := newFixture(t, "bob")
	f.load(t, "bob")

	result := f.store.LoadProfile(context.Background(), "nobody")
	require.False(t, result.OK())
	assert.Equal(t, "profile.loadProfile", result.Action)

	st := f.store.Snapshot()
	assertIdle(t, st)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "bob", st.Profile.Username, "previous profile kept")
	assert.Equal(t, []string{"Problem loading profile"}, f.noticeMessages())
}

func TestUploadThenSetMainPhoto(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")

	result := f.store.UploadPhoto(ctx, "beach.jpg", strings.NewReader("jpeg bytes"))
	require.True(t, result.OK(), result.String())

	st := f.store.Snapshot()
	assertIdle(t, st)
	require.Len(t, st.Profile.Photos, 2)
	uploaded := st.Profile.Photos[1]
	assert.False(t, uploaded.IsMain, "bob already has a main photo")
	assert.True(t, strings.HasSuffix(uploaded.URL, "/beach.jpg"))
	assert.Empty(t, f.viewer.images)

	result = f.store.SetMainPhoto(ctx, uploaded)
	require.True(t, result.OK(), result.String())

	st = f.store.Snapshot()
	assertIdle(t, st)
	assert.Equal(t, []string{uploaded.ID}, mainPhotos(st.Profile))
	assert.Equal(t, uploaded.URL, st.Profile.Image)
	assert.Equal(t, []string{uploaded.URL}, f.viewer.images)

	server, ok := f.fake.Profile("bob")
	require.True(t, ok)
	assert.Equal(t, uploaded.URL, server.Image)
}

func TestUploadPhoto_FirstPhotoBecomesMain(t *testing.T) {
	f := newFixture(t, "jane")
	f.load(t, "jane")

	result := f.store.UploadPhoto(context.Background(), "me.png", strings.NewReader("png"))
	require.True(t, result.OK(), result.String())

	st := f.store.Snapshot()
	require.Len(t, st.Profile.Photos, 1)
	assert.True(t, st.Profile.Photos[0].IsMain)
	assert.Equal(t, st.Profile.Photos[0].URL, st.Profile.Image)
	assert.Equal(t, []string{st.Profile.Photos[0].URL}, f.viewer.images)
}

func TestUploadPhoto_Failure(t *testing.T) {
	f := newFixture(t, "bob")
	f.load(t, "bob")
	f.fake.FailNext(fakeapi.RouteUploadPhoto, 500)

	result := f.store.UploadPhoto(context.Background(), "beach.jpg", strings.NewReader("x"))
	require.False(t, result.OK())

	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.Len(t, st.Profile.Photos, 1)
	assert.Equal(t, []string{"Problem uploading photo"}, f.noticeMessages())
}

func TestSetMainPhoto_ExactlyOneMain(t *testing.T) {
	tests := []struct {
		name   string
		image  string
		photos []apiclient.Photo
	}{
		{
			name:  "previous main photo",
			image: "/images/a.jpg",
			photos: []apiclient.Photo{
				{ID: "a", URL: "/images/a.jpg", IsMain: true},
				{ID: "b", URL: "/images/b.jpg"},
			},
		},
		{
			name: "no main photo yet",
			photos: []apiclient.Photo{
				{ID: "a", URL: "/images/a.jpg"},
				{ID: "b", URL: "/images/b.jpg"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sam := apiclient.Profile{
				Username:    "sam",
				DisplayName: "Sam",
				Image:       tt.image,
				Photos:      tt.photos,
			}
			f := newFixture(t, "sam", sam)
			f.load(t, "sam")

			result := f.store.SetMainPhoto(context.Background(), apiclient.Photo{ID: "b", URL: "/images/b.jpg"})
			require.True(t, result.OK(), result.String())

			st := f.store.Snapshot()
			assert.Equal(t, []string{"b"}, mainPhotos(st.Profile))
			assert.False(t, st.Profile.Photos[0].IsMain)
			assert.Equal(t, "/images/b.jpg", st.Profile.Image)
			assert.Equal(t, []string{"/images/b.jpg"}, f.viewer.images)
			assertIdle(t, st)
		})
	}
}

func TestSetMainPhoto_UnknownPhoto(t *testing.T) {
	f := newFixture(t, "bob")
	f.load(t, "bob")

	result := f.store.SetMainPhoto(context.Background(), apiclient.Photo{ID: "missing"})
	require.False(t, result.OK())
	assert.True(t, errors.Is(result.Err, ErrPhotoNotFound))
	assert.Equal(t, 0, f.fake.Requests(fakeapi.RouteSetMainPhoto))
	assertIdle(t, f.store.Snapshot())
}

func TestSetMainPhoto_Failure(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")
	require.True(t, f.store.UploadPhoto(ctx, "b.jpg", strings.NewReader("x")).OK())
	uploaded := f.store.Snapshot().Profile.Photos[1]

	f.fake.FailNext(fakeapi.RouteSetMainPhoto, 500)
	result := f.store.SetMainPhoto(ctx, uploaded)
	require.False(t, result.OK())

	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.Equal(t, []string{"bob-1"}, mainPhotos(st.Profile))
	assert.Empty(t, f.viewer.images)
	assert.Equal(t, []string{"Problem setting main photo"}, f.noticeMessages())
}

func TestDeletePhoto(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")
	require.True(t, f.store.UploadPhoto(ctx, "b.jpg", strings.NewReader("x")).OK())
	photos := f.store.Snapshot().Profile.Photos
	require.Len(t, photos, 2)

	t.Run("main photo is refused", func(t *testing.T) {
		result := f.store.DeletePhoto(ctx, photos[0])
		require.False(t, result.OK())

		st := f.store.Snapshot()
		assertIdle(t, st)
		assert.Len(t, st.Profile.Photos, 2)
		assert.Equal(t, []string{"Problem deleting photo"}, f.noticeMessages())
	})

	t.Run("other photo is removed", func(t *testing.T) {
		result := f.store.DeletePhoto(ctx, photos[1])
		require.True(t, result.OK(), result.String())

		st := f.store.Snapshot()
		assertIdle(t, st)
		require.Len(t, st.Profile.Photos, 1)
		assert.Equal(t, "bob-1", st.Profile.Photos[0].ID)
	})
}

func TestEditProfile(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")

	result := f.store.EditProfile(ctx, apiclient.ProfileDetails{
		DisplayName: "  Robert ",
		Bio:         "<b>Likes</b> <script>alert(1)</script>climbing",
	})
	require.True(t, result.OK(), result.String())

	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.Equal(t, "Robert", st.Profile.DisplayName)
	assert.NotContains(t, st.Profile.Bio, "<")
	assert.Contains(t, st.Profile.Bio, "climbing")
	assert.Equal(t, []string{"Robert"}, f.viewer.names)

	server, ok := f.fake.Profile("bob")
	require.True(t, ok)
	assert.Equal(t, "Robert", server.DisplayName)
	assert.Equal(t, st.Profile.Bio, server.Bio)
}

func TestEditProfile_OtherProfileUntouched(t *testing.T) {
	f := newFixture(t, "bob")
	f.load(t, "jane")

	result := f.store.EditProfile(context.Background(), apiclient.ProfileDetails{DisplayName: "Robert"})
	require.True(t, result.OK(), result.String())

	st := f.store.Snapshot()
	assert.Equal(t, "Jane", st.Profile.DisplayName)
	assert.Equal(t, []string{"Robert"}, f.viewer.names)
}

func TestEditProfile_DisplayNameRequired(t *testing.T) {
	f := newFixture(t, "bob")
	f.load(t, "bob")

	result := f.store.EditProfile(context.Background(), apiclient.ProfileDetails{DisplayName: "   ", Bio: "x"})
	require.False(t, result.OK())
	assert.True(t, errors.Is(result.Err, ErrDisplayNameRequired))
	assert.Equal(t, 0, f.fake.Requests(fakeapi.RouteEditProfile))
	assert.Equal(t, "Bob", f.store.Snapshot().Profile.DisplayName)
}

func TestFollowThenUnfollow(t *testing.T) {
	f := newFixture(t, "tom")
	ctx := context.Background()
	f.load(t, "jane")

	before := *f.store.Snapshot().Profile
	assert.False(t, before.Following)

	require.True(t, f.store.Follow(ctx, "jane").OK())
	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.True(t, st.Profile.Following)
	assert.Equal(t, before.FollowersCount+1, st.Profile.FollowersCount)

	require.True(t, f.store.Unfollow(ctx, "jane").OK())
	st = f.store.Snapshot()
	assertIdle(t, st)
	assert.False(t, st.Profile.Following)
	assert.Equal(t, before.FollowersCount, st.Profile.FollowersCount)
}

func TestFollow_Failure(t *testing.T) {
	f := newFixture(t, "jane")
	f.load(t, "bob")

	// jane already follows bob, so the server refuses.
	result := f.store.Follow(context.Background(), "bob")
	require.False(t, result.OK())

	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.True(t, st.Profile.Following)
	assert.Equal(t, 2, st.Profile.FollowersCount)
	assert.Equal(t, []string{"Problem following user"}, f.noticeMessages())
}

func TestActiveTab(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")

	f.store.SetActiveTab(ctx, TabFollowers)
	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.Equal(t, []string{"jane", "tom"}, usernames(st.Followings))

	f.store.SetActiveTab(ctx, TabFollowing)
	assert.Equal(t, []string{"tom"}, usernames(f.store.Snapshot().Followings))

	f.store.SetActiveTab(ctx, 1)
	assert.Nil(t, f.store.Snapshot().Followings)

	assert.Equal(t, 2, f.fake.Requests(fakeapi.RouteListFollowings))
}

func TestFollowReloadsFollowersTab(t *testing.T) {
	sam := apiclient.Profile{Username: "sam", DisplayName: "Sam"}
	f := newFixture(t, "sam", sam)
	ctx := context.Background()
	f.load(t, "jane")

	f.store.SetActiveTab(ctx, TabFollowers)
	assert.Empty(t, f.store.Snapshot().Followings)

	require.True(t, f.store.Follow(ctx, "jane").OK())
	assert.Equal(t, []string{"sam"}, usernames(f.store.Snapshot().Followings))

	require.True(t, f.store.Unfollow(ctx, "jane").OK())
	assert.Empty(t, f.store.Snapshot().Followings)
	assert.Equal(t, 3, f.fake.Requests(fakeapi.RouteListFollowings))
}

func TestFollowAdjustsFollowingsEntries(t *testing.T) {
	sam := apiclient.Profile{Username: "sam", DisplayName: "Sam"}
	f := newFixture(t, "sam", sam)
	ctx := context.Background()
	f.load(t, "jane")

	f.store.SetActiveTab(ctx, TabFollowing)
	followings := f.store.Snapshot().Followings
	require.Equal(t, []string{"bob"}, usernames(followings))
	assert.False(t, followings[0].Following)
	assert.Equal(t, 2, followings[0].FollowersCount)

	require.True(t, f.store.Follow(ctx, "bob").OK())

	st := f.store.Snapshot()
	assert.True(t, st.Followings[0].Following)
	assert.Equal(t, 3, st.Followings[0].FollowersCount)
	assert.False(t, st.Profile.Following, "jane's profile is not the followed one")
	assert.Equal(t, 1, f.fake.Requests(fakeapi.RouteListFollowings), "following tab is not reloaded")
}

func TestLoadFollowings_NoProfile(t *testing.T) {
	f := newFixture(t, "bob")

	result := f.store.LoadFollowings(context.Background(), apiclient.Followers)
	require.False(t, result.OK())
	assert.True(t, errors.Is(result.Err, ErrNoProfile))
	assert.Empty(t, f.noticeMessages())
	assert.Equal(t, 0, f.fake.Requests(fakeapi.RouteListFollowings))
}

// gatedAPI holds follower listings until released.
type gatedAPI struct {
	*apiclient.Client
	started chan struct{}
	release chan struct{}
}

func (g *gatedAPI) ListFollowings(ctx context.Context, username string, predicate apiclient.FollowPredicate) ([]apiclient.Profile, error) {
	if predicate == apiclient.Followers {
		close(g.started)
		<-g.release
	}
	return g.Client.ListFollowings(ctx, username, predicate)
}

func TestLoadFollowings_StaleResponseDropped(t *testing.T) {
	fake := fakeapi.New(fakeapi.WithViewer("bob"))
	fakeapi.Seed(fake)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL + "/api")
	require.NoError(t, err)

	api := &gatedAPI{Client: client, started: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureWithAPI(t, api, fake, "bob")
	ctx := context.Background()
	f.load(t, "bob")

	first := make(chan action.Result, 1)
	go func() {
		first <- f.store.LoadFollowings(ctx, apiclient.Followers)
	}()
	<-api.started

	require.True(t, f.store.LoadFollowings(ctx, apiclient.Following).OK())
	close(api.release)
	require.True(t, (<-first).OK())

	st := f.store.Snapshot()
	assertIdle(t, st)
	assert.Equal(t, []string{"tom"}, usernames(st.Followings))
}

func TestClose(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	f.load(t, "bob")

	f.store.Close()
	f.store.SetActiveTab(ctx, TabFollowers)

	assert.Equal(t, TabFollowers, f.store.Snapshot().ActiveTab)
	assert.Nil(t, f.store.Snapshot().Followings)
	assert.Equal(t, 0, f.fake.Requests(fakeapi.RouteListFollowings))
}
