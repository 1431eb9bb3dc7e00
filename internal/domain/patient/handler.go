package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/pacientes/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient endpoints under /pacientes. Reads are open
// to any authenticated caller; writes need a clinical or admin role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/pacientes")
	g.GET("", h.ListPatients)
	g.GET("/:id", h.GetPatient)

	write := g.Group("", auth.RequireRole("admin", "clinician"))
	write.POST("", h.CreatePatient)
	write.PUT("/:id", h.UpdatePatient)
	write.DELETE("/:id", h.DeletePatient)
}

// ListPatients serves GET /pacientes. With ?nome= it runs a name search,
// which answers 404 when nothing matches.
func (h *Handler) ListPatients(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		items []*Patient
		err   error
	)
	if name := c.QueryParam("nome"); name != "" {
		items, err = h.svc.SearchPatients(ctx, name)
	} else {
		items, err = h.svc.ListPatients(ctx)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, PatientsToDTO(items))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatientByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, PatientToDTO(p))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	body, err := bindPatient(c)
	if err != nil {
		return err
	}
	body.ID = 0
	p, err := h.svc.AddPatient(c.Request().Context(), PatientFromDTO(body))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, PatientToDTO(p))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	body, err := bindPatient(c)
	if err != nil {
		return err
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, PatientFromDTO(body))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, PatientToDTO(p))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bindPatient decodes the JSON body. Oversized bodies keep their 413; any
// other decoding problem is a 400.
func bindPatient(c echo.Context) (PatientDTO, error) {
	var body PatientDTO
	if err := c.Bind(&body); err != nil {
		if he := findHTTPError(err, http.StatusRequestEntityTooLarge); he != nil {
			return body, he
		}
		return body, echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return body, nil
}

// findHTTPError walks err and the causes attached to each HTTPError, since
// the binder wraps read failures in its own 400.
func findHTTPError(err error, code int) *echo.HTTPError {
	var he *echo.HTTPError
	for errors.As(err, &he) {
		if he.Code == code {
			return he
		}
		if he.Internal == nil {
			return nil
		}
		err = he.Internal
	}
	return nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// httpError maps domain errors to HTTP responses. Only ErrPatientNotFound
// becomes a 404; unknown failures stay 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
