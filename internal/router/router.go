// Package router wires the HTTP API: authentication, the contact CRUD
// surface, the address-enrichment endpoints and the internal stats
// endpoint. Handlers decode JSON bodies, validate them and translate
// the services' sentinel errors into HTTP statuses.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/agenda/internal/auth"
	"github.com/patric-chuzhbe/agenda/internal/contacts"
	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/enrichment"
	"github.com/patric-chuzhbe/agenda/internal/georefresher"
	"github.com/patric-chuzhbe/agenda/internal/gzippedhttp"
	"github.com/patric-chuzhbe/agenda/internal/identity"
	"github.com/patric-chuzhbe/agenda/internal/ipchecker"
	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
	"github.com/patric-chuzhbe/agenda/internal/viacep"
)

type identityService interface {
	SignUp(ctx context.Context, name, email, password string) (*models.User, string, error)
	SignIn(ctx context.Context, email, password string) (*models.User, string, error)
	SignOut()
	DeleteAccount(ctx context.Context, userID, password string) error
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error)
}

type contactsService interface {
	List(ctx context.Context, userID string) ([]models.Contact, error)
	Get(ctx context.Context, userID, contactID string) (*models.Contact, error)
	Add(ctx context.Context, userID string, data models.ContactData) (*models.Contact, error)
	Update(ctx context.Context, userID, contactID string, patch models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, userID, contactID string) error
	Search(ctx context.Context, userID, term string) ([]models.Contact, error)
}

type enricher interface {
	EnrichAddress(ctx context.Context, cep string) (*viacep.AddressData, error)
	ResolveCoordinates(ctx context.Context, address string) enrichment.Resolution
}

type refreshEnqueuer interface {
	EnqueueJob(job *georefresher.Job)
}

type storageReader interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfContacts(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	SetSessionToken(response http.ResponseWriter, token string)
	ClearSessionToken(response http.ResponseWriter)
}

// Router holds the handler dependencies.
type Router struct {
	identity  identityService
	contacts  contactsService
	pipeline  enricher
	refresher refreshEnqueuer
	db        storageReader
	auth      authenticator
	ipChecker *ipchecker.IPChecker
	validate  *validator.Validate
}

// New assembles the chi mux with logging and gzip middleware on every
// route and JWT authentication on the protected subtree.
func New(
	identitySvc identityService,
	contactsSvc contactsService,
	pipeline enricher,
	refresher refreshEnqueuer,
	db storageReader,
	authHandler authenticator,
	ipChecker *ipchecker.IPChecker,
) *chi.Mux {
	theRouter := &Router{
		identity:  identitySvc,
		contacts:  contactsSvc,
		pipeline:  pipeline,
		refresher: refresher,
		db:        db,
		auth:      authHandler,
		ipChecker: ipChecker,
		validate:  validator.New(),
	}

	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)
	mux.Use(gzippedhttp.WithGzipCompression)

	mux.Get(`/ping`, theRouter.getPing)

	mux.Post(`/api/auth/register`, theRouter.postRegister)
	mux.Post(`/api/auth/login`, theRouter.postLogin)

	mux.Group(func(protected chi.Router) {
		protected.Use(authHandler.AuthenticateUser)

		protected.Post(`/api/auth/logout`, theRouter.postLogout)
		protected.Get(`/api/auth/me`, theRouter.getMe)
		protected.Patch(`/api/auth/profile`, theRouter.patchProfile)
		protected.Put(`/api/auth/password`, theRouter.putPassword)
		protected.Delete(`/api/auth/account`, theRouter.deleteAccount)

		protected.Get(`/api/contacts`, theRouter.getContacts)
		protected.Post(`/api/contacts`, theRouter.postContact)
		protected.Get(`/api/contacts/search`, theRouter.getContactsSearch)
		protected.Get(`/api/contacts/{contactID}`, theRouter.getContact)
		protected.Put(`/api/contacts/{contactID}`, theRouter.putContact)
		protected.Delete(`/api/contacts/{contactID}`, theRouter.deleteContact)

		protected.Get(`/api/cep/{cep}`, theRouter.getCEP)
		protected.Get(`/api/geocode`, theRouter.getGeocode)
	})

	mux.Get(`/api/internal/stats`, theRouter.getInternalStats)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(response http.ResponseWriter, status int, value interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(value); err != nil {
		logger.Log.Debugln("Error encoding the response: ", zap.Error(err))
	}
}

// writeError maps the services' sentinel errors onto HTTP statuses.
// Transport-level lookup failures get 502 so clients can tell "retry
// later" apart from the 404 of an unknown postal code.
func writeError(response http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, contacts.ErrDuplicateCPF):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrContactNotFound),
		errors.Is(err, viacep.ErrCEPNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contacts.ErrInvalidCPF),
		errors.Is(err, viacep.ErrInvalidCEP):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, viacep.ErrLookupFailed):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Log.Errorw("unhandled error in HTTP handler", "error", err)
	}

	writeJSON(response, status, errorResponse{Error: err.Error()})
}

func (router *Router) decodeAndValidate(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return err
	}

	return router.validate.Struct(target)
}

func userIDFromContext(request *http.Request) string {
	userID, _ := request.Context().Value(auth.UserIDKey).(string)

	return userID
}

func (router *Router) getPing(response http.ResponseWriter, request *http.Request) {
	if err := router.db.Ping(request.Context()); err != nil {
		response.WriteHeader(http.StatusInternalServerError)
		return
	}
	response.WriteHeader(http.StatusOK)
}

func (router *Router) postRegister(response http.ResponseWriter, request *http.Request) {
	var body models.RegisterRequest
	if err := router.decodeAndValidate(request, &body); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	usr, token, err := router.identity.SignUp(request.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		writeError(response, err)
		return
	}

	router.auth.SetSessionToken(response, token)
	writeJSON(response, http.StatusCreated, usr)
}

func (router *Router) postLogin(response http.ResponseWriter, request *http.Request) {
	var body models.LoginRequest
	if err := router.decodeAndValidate(request, &body); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	usr, token, err := router.identity.SignIn(request.Context(), body.Email, body.Password)
	if err != nil {
		writeError(response, err)
		return
	}

	router.auth.SetSessionToken(response, token)
	writeJSON(response, http.StatusOK, usr)
}

func (router *Router) postLogout(response http.ResponseWriter, request *http.Request) {
	router.identity.SignOut()
	router.auth.ClearSessionToken(response)
	response.WriteHeader(http.StatusNoContent)
}

func (router *Router) getMe(response http.ResponseWriter, request *http.Request) {
	usr, err := router.db.GetUserByID(request.Context(), userIDFromContext(request))
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

func (router *Router) patchProfile(response http.ResponseWriter, request *http.Request) {
	var patch models.UserPatch
	if err := router.decodeAndValidate(request, &patch); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	usr, err := router.identity.UpdateProfile(request.Context(), userIDFromContext(request), patch)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

func (router *Router) putPassword(response http.ResponseWriter, request *http.Request) {
	var body models.UpdatePasswordRequest
	if err := router.decodeAndValidate(request, &body); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	err := router.identity.UpdatePassword(
		request.Context(),
		userIDFromContext(request),
		body.CurrentPassword,
		body.NewPassword,
	)
	if err != nil {
		writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (router *Router) deleteAccount(response http.ResponseWriter, request *http.Request) {
	var body models.DeleteAccountRequest
	if err := router.decodeAndValidate(request, &body); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := router.identity.DeleteAccount(request.Context(), userIDFromContext(request), body.Password); err != nil {
		writeError(response, err)
		return
	}

	router.auth.ClearSessionToken(response)
	response.WriteHeader(http.StatusNoContent)
}

func (router *Router) getContacts(response http.ResponseWriter, request *http.Request) {
	list, err := router.contacts.List(request.Context(), userIDFromContext(request))
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, list)
}

// resolveLocation fills in coordinates for a contact whose caller did
// not supply any, and queues a background refresh when the geocoder
// had to be substituted with the default pair.
func (router *Router) resolveLocation(
	request *http.Request,
	address models.Address,
) (models.Coordinates, *georefresher.Job) {
	composed := enrichment.ComposeAddress(address.Street, address.Number, address.City, address.State)
	resolution := router.pipeline.ResolveCoordinates(request.Context(), composed)
	if !resolution.Defaulted {
		return resolution.Location, nil
	}

	return resolution.Location, &georefresher.Job{
		UserID:  userIDFromContext(request),
		Address: composed,
	}
}

func (router *Router) postContact(response http.ResponseWriter, request *http.Request) {
	var data models.ContactData
	if err := router.decodeAndValidate(request, &data); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var refreshJob *georefresher.Job
	if data.Location == (models.Coordinates{}) {
		data.Location, refreshJob = router.resolveLocation(request, data.Address)
	}

	contact, err := router.contacts.Add(request.Context(), userIDFromContext(request), data)
	if err != nil {
		writeError(response, err)
		return
	}

	if refreshJob != nil {
		refreshJob.ContactID = contact.ID
		router.refresher.EnqueueJob(refreshJob)
	}

	writeJSON(response, http.StatusCreated, contact)
}

func (router *Router) getContact(response http.ResponseWriter, request *http.Request) {
	contact, err := router.contacts.Get(
		request.Context(),
		userIDFromContext(request),
		chi.URLParam(request, "contactID"),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, contact)
}

func (router *Router) putContact(response http.ResponseWriter, request *http.Request) {
	var patch models.ContactPatch
	if err := router.decodeAndValidate(request, &patch); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var refreshJob *georefresher.Job
	if patch.Address != nil && patch.Location == nil {
		location, job := router.resolveLocation(request, *patch.Address)
		patch.Location = &location
		refreshJob = job
	}

	contact, err := router.contacts.Update(
		request.Context(),
		userIDFromContext(request),
		chi.URLParam(request, "contactID"),
		patch,
	)
	if err != nil {
		writeError(response, err)
		return
	}

	if refreshJob != nil {
		refreshJob.ContactID = contact.ID
		router.refresher.EnqueueJob(refreshJob)
	}

	writeJSON(response, http.StatusOK, contact)
}

func (router *Router) deleteContact(response http.ResponseWriter, request *http.Request) {
	err := router.contacts.Delete(
		request.Context(),
		userIDFromContext(request),
		chi.URLParam(request, "contactID"),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (router *Router) getContactsSearch(response http.ResponseWriter, request *http.Request) {
	found, err := router.contacts.Search(
		request.Context(),
		userIDFromContext(request),
		request.URL.Query().Get("q"),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, found)
}

func (router *Router) getCEP(response http.ResponseWriter, request *http.Request) {
	address, err := router.pipeline.EnrichAddress(request.Context(), chi.URLParam(request, "cep"))
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, address)
}

func (router *Router) getGeocode(response http.ResponseWriter, request *http.Request) {
	address := request.URL.Query().Get("address")
	if address == "" {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: "the `address` query parameter is required"})
		return
	}

	resolution := router.pipeline.ResolveCoordinates(request.Context(), address)
	writeJSON(response, http.StatusOK, models.ResolutionResponse{
		Location:  resolution.Location,
		Defaulted: resolution.Defaulted,
		Reason:    resolution.Reason,
	})
}

func (router *Router) getInternalStats(response http.ResponseWriter, request *http.Request) {
	if router.ipChecker.IsTrustedSubnetEmpty() || !router.ipChecker.Check(ipchecker.ClientIP(request)) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	users, err := router.db.GetNumberOfUsers(request.Context())
	if err != nil {
		writeError(response, err)
		return
	}

	contactsTotal, err := router.db.GetNumberOfContacts(request.Context())
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.InternalStatsResponse{
		Users:    users,
		Contacts: contactsTotal,
	})
}
