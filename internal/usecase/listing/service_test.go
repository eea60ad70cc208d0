package listing

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainListing "wanderhub/internal/domain/listing"
	domainUser "wanderhub/internal/domain/user"
	"wanderhub/internal/logger"
	appErrors "wanderhub/pkg/errors"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	os.Exit(m.Run())
}

type testEnv struct {
	svc      *Service
	listings *fakeListingRepo
	reviews  *fakeReviewRepo
	users    *fakeUserRepo
	store    *fakeImageStore
}

func newTestEnv() *testEnv {
	listings := newFakeListingRepo()
	reviews := newFakeReviewRepo(listings)
	users := newFakeUserRepo()
	store := &fakeImageStore{}
	return &testEnv{
		svc:      NewService(listings, reviews, users, store),
		listings: listings,
		reviews:  reviews,
		users:    users,
		store:    store,
	}
}

func (e *testEnv) createListing(t *testing.T, owner *domainUser.User, title string, price float64) *ListingResponse {
	t.Helper()

	resp, err := e.svc.Create(context.Background(), owner.ID, &CreateListingRequest{
		Title:    title,
		Price:    price,
		Location: "Lisbon",
		Country:  "Portugal",
	}, []ImageUpload{{ContentType: "image/jpeg", Body: strings.NewReader("jpeg-bytes")}})
	require.NoError(t, err)
	return resp
}

func buyReq(name string) *BuyRequest {
	return &BuyRequest{
		Name:    name,
		Email:   strings.ToLower(name) + "@example.com",
		Phone:   "+351 900 000 000",
		Address: "1 Harbour St",
	}
}

func TestCreateListing(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")

	resp := env.createListing(t, alice, "Mountain Bike", 100)

	assert.Equal(t, "active", resp.State)
	assert.Equal(t, alice.ID, resp.OwnerID)
	assert.Len(t, resp.Images, 1)
	assert.Len(t, env.store.uploaded, 1)
	assert.False(t, resp.IsSold)
}

func TestCreateListingImageBounds(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")

	_, err := env.svc.Create(context.Background(), alice.ID, &CreateListingRequest{
		Title: "Bike", Price: 100, Location: "Lisbon", Country: "Portugal",
	}, nil)
	assert.Error(t, err, "listing without images must be rejected")

	uploads := make([]ImageUpload, domainListing.MaxImages+1)
	for i := range uploads {
		uploads[i] = ImageUpload{ContentType: "image/jpeg", Body: strings.NewReader("x")}
	}
	_, err = env.svc.Create(context.Background(), alice.ID, &CreateListingRequest{
		Title: "Bike", Price: 100, Location: "Lisbon", Country: "Portugal",
	}, uploads)
	assert.Error(t, err, "more than the image cap must be rejected")
	assert.Empty(t, env.store.uploaded, "rejected creates must not upload")
}

func TestCreateListingUploadFailureRollsBack(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")

	uploads := []ImageUpload{
		{ContentType: "image/jpeg", Body: strings.NewReader("a")},
		{ContentType: "image/jpeg", Body: strings.NewReader("b")},
	}
	// First upload succeeds, second fails: the survivor must be deleted.
	store := &failSecondStore{inner: env.store}

	svc := NewService(env.listings, env.reviews, env.users, store)
	_, err := svc.Create(context.Background(), alice.ID, &CreateListingRequest{
		Title: "Bike", Price: 100, Location: "Lisbon", Country: "Portugal",
	}, uploads)

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStorageFailure)
	assert.Equal(t, env.store.uploaded, env.store.deleted, "orphaned blobs must be cleaned up")
}

func TestBuyOwnListingRejected(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), alice.ID, l.ID, buyReq("Alice"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.Nil(t, got.PurchaseRequest, "rejected buy must not attach a request")
}

func TestBuyAttachesRequest(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	resp, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	assert.Equal(t, "request_pending", resp.State)
	assert.False(t, resp.IsSold)
	assert.Nil(t, resp.PurchaseRequest, "buyer must not see the request details")

	ownerView, err := env.svc.Get(context.Background(), l.ID, &alice.ID)
	require.NoError(t, err)
	require.NotNil(t, ownerView.PurchaseRequest, "owner must see the request")
	assert.Equal(t, bob.ID, ownerView.PurchaseRequest.BuyerID)
	assert.Equal(t, "Bob", ownerView.PurchaseRequest.Name)
	assert.False(t, ownerView.PurchaseRequest.SeenBySeller)
}

func TestSecondBuyConflicts(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	carol := env.users.add("carol", "carol@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	_, err = env.svc.Buy(context.Background(), carol.ID, l.ID, buyReq("Carol"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	require.NotNil(t, got.PurchaseRequest)
	assert.Equal(t, bob.ID, got.PurchaseRequest.BuyerID, "first request must survive")
	assert.False(t, got.IsSold, "pending request and sold must be mutually exclusive")
}

func TestConcurrentBuysExactlyOneWins(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)

	for i := 0; i < buyers; i++ {
		buyer := env.users.add("buyer", "buyer"+string(rune('a'+i))+"@example.com")
		wg.Add(1)
		go func(i int, buyerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.svc.Buy(context.Background(), buyerID, l.ID, buyReq("Buyer"))
		}(i, buyer.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, appErrors.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent buyer must win")

	got, err := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PurchaseRequest)
	assert.False(t, got.IsSold)
}

func TestEditBlockedWhilePending(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	newTitle := "Faster Bike"
	_, err = env.svc.Update(context.Background(), alice.ID, l.ID, &UpdateListingRequest{Title: &newTitle}, nil)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "Bike", got.Title, "failed edit must not change fields")

	err = env.svc.Delete(context.Background(), alice.ID, l.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestNonOwnerMutationsForbidden(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	mallory := env.users.add("mallory", "mallory@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	newTitle := "Stolen Bike"
	_, err := env.svc.Update(context.Background(), mallory.ID, l.ID, &UpdateListingRequest{Title: &newTitle}, nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	err = env.svc.Delete(context.Background(), mallory.ID, l.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), mallory.ID, l.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = env.svc.Decline(context.Background(), mallory.ID, l.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "Bike", got.Title)
	assert.False(t, got.IsSold)
	require.NotNil(t, got.PurchaseRequest)
	assert.Equal(t, bob.ID, got.PurchaseRequest.BuyerID)
}

func TestApproveFinalizesSale(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	resp, err := env.svc.Approve(context.Background(), alice.ID, l.ID)
	require.NoError(t, err)

	assert.Equal(t, "sold", resp.State)
	assert.True(t, resp.IsSold)
	require.NotNil(t, resp.BuyerID)
	assert.Equal(t, bob.ID, *resp.BuyerID)
	require.NotNil(t, resp.SoldPrice)
	assert.Equal(t, 100.0, *resp.SoldPrice)
	assert.Nil(t, resp.PurchaseRequest, "approved request must be cleared")
}

func TestApproveReplayIsRejected(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)
	_, err = env.svc.Approve(context.Background(), alice.ID, l.ID)
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), alice.ID, l.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.True(t, got.IsSold)
	require.NotNil(t, got.BuyerID)
	assert.Equal(t, bob.ID, *got.BuyerID, "replay must not disturb the recorded buyer")
	require.NotNil(t, got.SoldPrice)
	assert.Equal(t, 100.0, *got.SoldPrice)
}

func TestDeclineReturnsListingToActive(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	resp, err := env.svc.Decline(context.Background(), alice.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.State)
	assert.False(t, resp.IsSold)

	// The same buyer may request again after a decline.
	_, err = env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	assert.NoError(t, err)
}

func TestDeleteCascadesImagesAndReviews(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	rv, err := env.svc.AddReview(context.Background(), bob.ID, l.ID, &AddReviewRequest{Comment: "Nice", Rating: 5})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(context.Background(), alice.ID, l.ID))

	_, err = env.listings.GetByID(context.Background(), l.ID)
	assert.ErrorIs(t, err, domainListing.ErrListingNotFound)
	assert.Equal(t, env.store.uploaded, env.store.deleted, "image blobs must be removed")

	reviews, err := env.reviews.ListByListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews, "reviews must not dangle after listing deletion")
	_, err = env.reviews.GetByID(context.Background(), rv.ID)
	assert.Error(t, err)
}

func TestReviewBookkeeping(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	rv, err := env.svc.AddReview(context.Background(), bob.ID, l.ID, &AddReviewRequest{Comment: "Great bike", Rating: 4})
	require.NoError(t, err)

	got, gerr := env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.Equal(t, 1, got.ReviewCount)

	require.NoError(t, env.svc.RemoveReview(context.Background(), bob.ID, l.ID, rv.ID))

	got, gerr = env.listings.GetByID(context.Background(), l.ID)
	require.NoError(t, gerr)
	assert.Equal(t, 0, got.ReviewCount, "count and rows must stay in step")
	reviews, _ := env.reviews.ListByListing(context.Background(), l.ID)
	assert.Empty(t, reviews)
}

func TestReviewOnMissingListing(t *testing.T) {
	env := newTestEnv()
	bob := env.users.add("bob", "bob@example.com")

	_, err := env.svc.AddReview(context.Background(), bob.ID, uuid.New(), &AddReviewRequest{Comment: "Hi", Rating: 3})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRemoveReviewPermissions(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	mallory := env.users.add("mallory", "mallory@example.com")
	l := env.createListing(t, alice, "Bike", 100)

	rv, err := env.svc.AddReview(context.Background(), bob.ID, l.ID, &AddReviewRequest{Comment: "Nice", Rating: 5})
	require.NoError(t, err)

	err = env.svc.RemoveReview(context.Background(), mallory.ID, l.ID, rv.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	// The listing owner may moderate reviews on their own listing.
	require.NoError(t, env.svc.RemoveReview(context.Background(), alice.ID, l.ID, rv.ID))
}

func TestSellerRoleAndNotifications(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")

	isSeller, err := env.svc.IsSeller(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, isSeller, "no listings means no seller role")

	l := env.createListing(t, alice, "Bike", 100)

	isSeller, err = env.svc.IsSeller(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, isSeller)

	_, err = env.svc.Buy(context.Background(), bob.ID, l.ID, buyReq("Bob"))
	require.NoError(t, err)

	n, err := env.svc.PendingUnseenCount(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	requests, err := env.svc.SellerRequests(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].PurchaseRequest)
	assert.True(t, requests[0].PurchaseRequest.SeenBySeller, "viewing the dashboard marks requests seen")

	n, err = env.svc.PendingUnseenCount(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "seen requests leave the badge")
}

func TestPublicListHidesSoldListings(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")
	bike := env.createListing(t, alice, "Bike", 100)
	env.createListing(t, alice, "Canoe", 250)

	_, err := env.svc.Buy(context.Background(), bob.ID, bike.ID, buyReq("Bob"))
	require.NoError(t, err)
	_, err = env.svc.Approve(context.Background(), alice.ID, bike.ID)
	require.NoError(t, err)

	page, err := env.svc.List(context.Background(), &FilterRequest{})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "Canoe", page.Listings[0].Title)
}

// Full happy path: alice lists a bike, bob requests it, alice approves.
func TestPurchaseScenario(t *testing.T) {
	env := newTestEnv()
	alice := env.users.add("alice", "alice@example.com")
	bob := env.users.add("bob", "bob@example.com")

	bike := env.createListing(t, alice, "Bike", 100)

	_, err := env.svc.Buy(context.Background(), bob.ID, bike.ID, buyReq("Bob"))
	require.NoError(t, err)

	detail, err := env.svc.Get(context.Background(), bike.ID, &alice.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.PurchaseRequest)
	assert.Equal(t, "bob@example.com", detail.PurchaseRequest.Email)

	sold, err := env.svc.Approve(context.Background(), alice.ID, bike.ID)
	require.NoError(t, err)

	assert.True(t, sold.IsSold)
	require.NotNil(t, sold.BuyerID)
	assert.Equal(t, bob.ID, *sold.BuyerID)
	require.NotNil(t, sold.SoldPrice)
	assert.Equal(t, 100.0, *sold.SoldPrice)
	assert.Nil(t, sold.PurchaseRequest)
}

// failSecondStore wraps the fake store and fails the second upload.
type failSecondStore struct {
	inner *fakeImageStore
	calls int
}

func (s *failSecondStore) Upload(ctx context.Context, contentType string, body io.Reader) (string, string, error) {
	s.calls++
	if s.calls == 2 {
		return "", "", errUploadFailed
	}
	return s.inner.Upload(ctx, contentType, body)
}

func (s *failSecondStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

var errUploadFailed = errors.New("upload failed")
