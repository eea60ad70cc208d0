package listing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainListing "wanderhub/internal/domain/listing"
	domainReview "wanderhub/internal/domain/review"
	domainUser "wanderhub/internal/domain/user"
)

// fakeListingRepo is an in-memory Repository with the same compare-and-set
// guarantees as the real one: lifecycle transitions are decided under a
// single lock, so concurrent callers observe exactly-one-winner semantics.
type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*domainListing.Listing
	reviews  *fakeReviewRepo
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[uuid.UUID]*domainListing.Listing)}
}

func cloneListing(l *domainListing.Listing) *domainListing.Listing {
	c := *l
	if l.BuyerID != nil {
		id := *l.BuyerID
		c.BuyerID = &id
	}
	if l.BuyerDetails != nil {
		d := *l.BuyerDetails
		c.BuyerDetails = &d
	}
	if l.SoldPrice != nil {
		p := *l.SoldPrice
		c.SoldPrice = &p
	}
	if l.PurchaseRequest != nil {
		r := *l.PurchaseRequest
		c.PurchaseRequest = &r
	}
	c.Images = append([]domainListing.Image(nil), l.Images...)
	return &c
}

func (r *fakeListingRepo) Create(_ context.Context, l *domainListing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	for i := range l.Images {
		l.Images[i].ID = uuid.New()
	}
	r.listings[l.ID] = cloneListing(l)
	return nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, listingID uuid.UUID) (*domainListing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return nil, domainListing.ErrListingNotFound
	}
	return cloneListing(l), nil
}

func (r *fakeListingRepo) UpdateFields(_ context.Context, listingID uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	if l.IsSold {
		return domainListing.ErrListingSold
	}
	if l.PurchaseRequest != nil {
		return domainListing.ErrRequestPending
	}

	for k, v := range fields {
		switch k {
		case "title":
			l.Title = v.(string)
		case "description":
			l.Description = v.(string)
		case "price":
			l.Price = v.(float64)
		case "location":
			l.Location = v.(string)
		case "country":
			l.Country = v.(string)
		default:
			return fmt.Errorf("unexpected field %q", k)
		}
	}
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeListingRepo) Delete(_ context.Context, listingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	if l.IsSold {
		return domainListing.ErrListingSold
	}
	if l.PurchaseRequest != nil {
		return domainListing.ErrRequestPending
	}

	delete(r.listings, listingID)
	if r.reviews != nil {
		r.reviews.dropByListing(listingID)
	}
	return nil
}

func (r *fakeListingRepo) List(_ context.Context, filter *domainListing.Filter) ([]*domainListing.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domainListing.Listing
	for _, l := range r.listings {
		if filter.UnsoldOnly && l.IsSold {
			continue
		}
		if filter.OwnerID != nil && l.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.PendingRequest != nil && (l.PurchaseRequest != nil) != *filter.PendingRequest {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, cloneListing(l))
	}
	return out, int64(len(out)), nil
}

func (r *fakeListingRepo) AttachPurchaseRequest(_ context.Context, listingID uuid.UUID, req *domainListing.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	if l.IsSold {
		return domainListing.ErrListingSold
	}
	if l.PurchaseRequest != nil {
		return domainListing.ErrRequestPending
	}

	attached := *req
	attached.RequestedAt = time.Now()
	attached.SeenBySeller = false
	l.PurchaseRequest = &attached
	return nil
}

func (r *fakeListingRepo) ApproveRequest(_ context.Context, listingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	if l.IsSold {
		return domainListing.ErrListingSold
	}
	if l.PurchaseRequest == nil {
		return domainListing.ErrNoRequest
	}

	buyerID := l.PurchaseRequest.BuyerID
	details := l.PurchaseRequest.BuyerDetails
	price := l.Price

	l.IsSold = true
	l.BuyerID = &buyerID
	l.BuyerDetails = &details
	l.SoldPrice = &price
	l.PurchaseRequest = nil
	return nil
}

func (r *fakeListingRepo) DeclineRequest(_ context.Context, listingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	if l.IsSold {
		return domainListing.ErrListingSold
	}
	if l.PurchaseRequest == nil {
		return domainListing.ErrNoRequest
	}

	l.PurchaseRequest = nil
	return nil
}

func (r *fakeListingRepo) MarkRequestsSeen(_ context.Context, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.listings {
		if l.OwnerID == ownerID && l.PurchaseRequest != nil {
			l.PurchaseRequest.SeenBySeller = true
		}
	}
	return nil
}

func (r *fakeListingRepo) CountByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, l := range r.listings {
		if l.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeListingRepo) CountUnseenPending(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, l := range r.listings {
		if l.OwnerID == ownerID && !l.IsSold && l.PurchaseRequest != nil && !l.PurchaseRequest.SeenBySeller {
			n++
		}
	}
	return n, nil
}

func (r *fakeListingRepo) AddImages(_ context.Context, listingID uuid.UUID, images []domainListing.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	for _, img := range images {
		img.ID = uuid.New()
		l.Images = append(l.Images, img)
	}
	return nil
}

func (r *fakeListingRepo) GetImage(_ context.Context, listingID, imageID uuid.UUID) (*domainListing.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return nil, domainListing.ErrListingNotFound
	}
	for _, img := range l.Images {
		if img.ID == imageID {
			found := img
			return &found, nil
		}
	}
	return nil, domainListing.ErrImageNotFound
}

func (r *fakeListingRepo) RemoveImage(_ context.Context, listingID, imageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[listingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}
	for i, img := range l.Images {
		if img.ID == imageID {
			l.Images = append(l.Images[:i], l.Images[i+1:]...)
			return nil
		}
	}
	return domainListing.ErrImageNotFound
}

// fakeReviewRepo mirrors the dual bookkeeping of the real repository:
// creating and deleting a review adjusts the listing's review count in the
// same critical section.
type fakeReviewRepo struct {
	mu       sync.Mutex
	reviews  map[uuid.UUID]*domainReview.Review
	listings *fakeListingRepo
}

func newFakeReviewRepo(listings *fakeListingRepo) *fakeReviewRepo {
	r := &fakeReviewRepo{
		reviews:  make(map[uuid.UUID]*domainReview.Review),
		listings: listings,
	}
	listings.reviews = r
	return r
}

// Lock order: listing lock before review lock, matching Delete on the
// listing side.
func (r *fakeReviewRepo) Create(_ context.Context, rv *domainReview.Review) error {
	r.listings.mu.Lock()
	defer r.listings.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings.listings[rv.ListingID]
	if !ok {
		return domainListing.ErrListingNotFound
	}

	rv.ID = uuid.New()
	rv.CreatedAt = time.Now()
	stored := *rv
	r.reviews[rv.ID] = &stored
	l.ReviewCount++
	return nil
}

func (r *fakeReviewRepo) GetByID(_ context.Context, reviewID uuid.UUID) (*domainReview.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[reviewID]
	if !ok {
		return nil, domainReview.ErrReviewNotFound
	}
	found := *rv
	return &found, nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, reviewID uuid.UUID) error {
	r.listings.mu.Lock()
	defer r.listings.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.reviews[reviewID]
	if !ok {
		return domainReview.ErrReviewNotFound
	}
	delete(r.reviews, reviewID)

	if l, ok := r.listings.listings[rv.ListingID]; ok && l.ReviewCount > 0 {
		l.ReviewCount--
	}
	return nil
}

func (r *fakeReviewRepo) ListByListing(_ context.Context, listingID uuid.UUID) ([]*domainReview.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domainReview.Review
	for _, rv := range r.reviews {
		if rv.ListingID == listingID {
			found := *rv
			out = append(out, &found)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) dropByListing(listingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rv := range r.reviews {
		if rv.ListingID == listingID {
			delete(r.reviews, id)
		}
	}
}

// fakeUserRepo covers the read side the listing service needs (author and
// owner lookups).
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domainUser.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domainUser.User)}
}

func (r *fakeUserRepo) add(username, email string) *domainUser.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := &domainUser.User{
		ID:       uuid.New(),
		Username: username,
		Email:    strings.ToLower(email),
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, u *domainUser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domainUser.ErrUserAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.Email = strings.ToLower(u.Email)
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, domainUser.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			found := *u
			return &found, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return domainUser.ErrUserNotFound
	}
	u.PasswordHashed = passwordHash
	return nil
}

func (r *fakeUserRepo) CreatePasswordResetToken(context.Context, *domainUser.PasswordResetToken) error {
	return nil
}

func (r *fakeUserRepo) GetPasswordResetToken(context.Context, string) (*domainUser.PasswordResetToken, error) {
	return nil, domainUser.ErrTokenInvalid
}

func (r *fakeUserRepo) MarkTokenAsUsed(context.Context, uuid.UUID) error {
	return nil
}

// fakeImageStore records uploads and deletions instead of talking to a
// bucket.
type fakeImageStore struct {
	mu       sync.Mutex
	next     int
	uploaded []string
	deleted  []string
	failNext bool
}

func (s *fakeImageStore) Upload(_ context.Context, _ string, _ io.Reader) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return "", "", fmt.Errorf("bucket unavailable")
	}
	s.next++
	key := fmt.Sprintf("listings/test/%d", s.next)
	s.uploaded = append(s.uploaded, key)
	return "https://cdn.test/" + key, key, nil
}

func (s *fakeImageStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, key)
	return nil
}
