package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wanderhub/internal/middleware"
	"wanderhub/internal/usecase/listing"
	"wanderhub/pkg/utils"
)

type ListingHandler struct {
	service *listing.Service
}

func NewListingHandler(service *listing.Service) *ListingHandler {
	return &ListingHandler{service: service}
}

func (h *ListingHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/listings", h.Index)
	router.GET("/listings/:id", h.Show)
}

func (h *ListingHandler) RegisterAuthRoutes(router *gin.RouterGroup) {
	router.GET("/listings/new", h.NewForm)
	router.POST("/listings", h.Create)
	router.GET("/listings/:id/edit", h.EditForm)
	router.PUT("/listings/:id", h.Update)
	router.DELETE("/listings/:id", h.Delete)

	router.GET("/listings/:id/buy", h.BuyForm)
	router.POST("/listings/:id/buy", h.Buy)

	router.POST("/listings/:id/approve", h.Approve)
	router.POST("/listings/:id/decline", h.Decline)

	router.POST("/listings/:id/reviews", h.AddReview)
	router.DELETE("/listings/:id/reviews/:reviewId", h.RemoveReview)
}

func (h *ListingHandler) RegisterSellerRoutes(router *gin.RouterGroup) {
	router.GET("/seller/requests", h.SellerRequests)
}

func (h *ListingHandler) Index(c *gin.Context) {
	var req listing.FilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	result, err := h.service.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listings", result)
}

func (h *ListingHandler) Show(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	var viewerID *uuid.UUID
	if id, ok := middleware.CurrentUserID(c); ok {
		viewerID = &id
	}

	result, err := h.service.Get(c.Request.Context(), listingID, viewerID)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listing", result)
}

func (h *ListingHandler) NewForm(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "New listing form", gin.H{"form": "listing"})
}

func (h *ListingHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	var req listing.CreateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	uploads, closers, err := h.imageUploads(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	defer closeAll(closers)

	result, err := h.service.Create(c.Request.Context(), userID, &req, uploads)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Listing created", result)
}

func (h *ListingHandler) EditForm(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	result, err := h.service.Get(c.Request.Context(), listingID, &userID)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	// Only the owner of an Active listing sees the edit form; everyone
	// else is sent to the listing page.
	if result.OwnerID != userID || result.State != "active" {
		c.Redirect(http.StatusSeeOther, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Edit listing form", result)
}

func (h *ListingHandler) Update(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	var req listing.UpdateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	uploads, closers, err := h.imageUploads(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	defer closeAll(closers)

	result, err := h.service.Update(c.Request.Context(), userID, listingID, &req, uploads)
	if err != nil {
		respondError(c, err, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listing updated", result)
}

func (h *ListingHandler) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, listingID); err != nil {
		respondError(c, err, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listing deleted", nil)
}

func (h *ListingHandler) BuyForm(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	result, err := h.service.Get(c.Request.Context(), listingID, &userID)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	// The owner cannot buy their own listing, and only Active listings
	// accept requests.
	if result.OwnerID == userID || result.State != "active" {
		c.Redirect(http.StatusSeeOther, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Buy form", result)
}

func (h *ListingHandler) Buy(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	var req listing.BuyRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Buy(c.Request.Context(), userID, listingID, &req)
	if err != nil {
		respondError(c, err, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Purchase request submitted", result)
}

func (h *ListingHandler) SellerRequests(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	result, err := h.service.SellerRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Pending purchase requests", gin.H{
		"listings": result,
	})
}

func (h *ListingHandler) Approve(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/seller/requests")
		return
	}

	result, err := h.service.Approve(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, err, "/seller/requests")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Purchase request approved", result)
}

func (h *ListingHandler) Decline(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/seller/requests")
		return
	}

	result, err := h.service.Decline(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, err, "/seller/requests")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Purchase request declined", result)
}

func (h *ListingHandler) AddReview(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}

	var req listing.AddReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.AddReview(c.Request.Context(), userID, listingID, &req)
	if err != nil {
		respondError(c, err, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Review added", result)
}

func (h *ListingHandler) RemoveReview(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings")
		return
	}
	reviewID, err := uuid.Parse(c.Param("reviewId"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/listings/"+listingID.String())
		return
	}

	if err := h.service.RemoveReview(c.Request.Context(), userID, listingID, reviewID); err != nil {
		respondError(c, err, "/listings/"+listingID.String())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Review removed", nil)
}

// imageUploads collects the multipart "images" files. Missing multipart
// data is fine: JSON edits carry no images.
func (h *ListingHandler) imageUploads(c *gin.Context) ([]listing.ImageUpload, []multipart.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, nil
	}

	files := form.File["images"]
	uploads := make([]listing.ImageUpload, 0, len(files))
	closers := make([]multipart.File, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, f)
		uploads = append(uploads, listing.ImageUpload{
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	return uploads, closers, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
