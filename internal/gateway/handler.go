package gateway

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fedehr/fedehr/internal/platform/auth"
	"github.com/fedehr/fedehr/internal/rpc"
	"github.com/fedehr/fedehr/internal/rpc/wire"
	"github.com/fedehr/fedehr/pkg/pagination"
)

// Handler exposes the patient-record API over HTTP. It is a thin translation
// layer: shape the body, enforce who may call, forward to the RPC surface,
// and map the status code back. No clinical semantics live here.
type Handler struct {
	api rpc.PatientAPI
}

func NewHandler(api rpc.PatientAPI) *Handler {
	return &Handler{api: api}
}

// RegisterRoutes mounts the patient routes on the given group. The group is
// expected to already run the JWT middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	elevated := auth.RequireRole(auth.RoleDoctor)

	g.POST("/patients", h.createPatient, elevated)
	g.GET("/patients", h.listPatients, elevated)
	g.GET("/patients/search/:patientId", h.searchPatient, elevated)
	g.GET("/patients/:id", h.getPatient, auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.PUT("/patients/:id", h.updatePatient, elevated)
	g.DELETE("/patients/:id", h.deletePatient, elevated)
}

func (h *Handler) createPatient(c echo.Context) error {
	doc, err := readDocument(c)
	if err != nil {
		return err
	}
	resp, err := h.api.CreatePatient(c.Request().Context(), &wire.CreatePatientRequest{
		Identity:     doc.Field("identity"),
		Demographics: doc.Field("demographics"),
		Contacts:     doc.Field("contacts"),
		Conditions:   listItems(doc.Field("conditions")),
		Meta:         doc.Field("meta"),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, resp.Patient)
}

func (h *Handler) getPatient(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	// Patients may only read the record their token is bound to. The role
	// gate on the route has already rejected everything but doctor/patient;
	// both checks run before anything reaches the backend.
	if auth.RoleFromContext(ctx) == auth.RolePatient && auth.PatientUUIDFromContext(ctx) != id {
		return echo.NewHTTPError(http.StatusForbidden, "access to another patient's record is not allowed")
	}

	resp, err := h.api.GetPatient(ctx, &wire.GetPatientRequest{PatientUUID: id})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp.Patient)
}

func (h *Handler) listPatients(c echo.Context) error {
	params := pagination.FromContext(c)
	resp, err := h.api.GetAllPatients(c.Request().Context(), &wire.GetAllPatientsRequest{
		Skip:  int32(params.Skip),
		Limit: int32(params.Limit),
	})
	if err != nil {
		return httpError(err)
	}
	patients := resp.Patients
	if patients == nil {
		patients = []*wire.Patient{}
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) searchPatient(c echo.Context) error {
	resp, err := h.api.SearchPatientById(c.Request().Context(), &wire.SearchPatientByIDRequest{
		PatientID: c.Param("patientId"),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp.Patient)
}

func (h *Handler) updatePatient(c echo.Context) error {
	doc, err := readDocument(c)
	if err != nil {
		return err
	}

	req := &wire.UpdatePatientRequest{
		PatientUUID:  c.Param("id"),
		Identity:     doc.Field("identity"),
		Demographics: doc.Field("demographics"),
		Contacts:     doc.Field("contacts"),
		Meta:         doc.Field("meta"),
	}
	if conditions := doc.Field("conditions"); conditions != nil {
		items := conditions.Items
		if items == nil {
			items = []*wire.Value{}
		}
		req.Conditions = &items
	}
	if ev := doc.Field("expectedVersion"); ev != nil && ev.Kind == wire.KindNumber {
		v := int64(ev.Num)
		req.ExpectedVersion = &v
	} else if qv := c.QueryParam("expectedVersion"); qv != "" {
		v, err := strconv.ParseInt(qv, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "expectedVersion must be an integer")
		}
		req.ExpectedVersion = &v
	}

	if req.Identity == nil && req.Demographics == nil && req.Contacts == nil &&
		req.Conditions == nil && req.Meta == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields supplied")
	}

	resp, err := h.api.UpdatePatient(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp.Patient)
}

func (h *Handler) deletePatient(c echo.Context) error {
	resp, err := h.api.DeletePatient(c.Request().Context(), &wire.DeletePatientRequest{
		PatientUUID: c.Param("id"),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// readDocument parses the request body as a structured document.
func readDocument(c echo.Context) (*wire.Value, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read request body")
	}
	doc, err := wire.FromJSON(body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	}
	if doc.Kind != wire.KindStruct {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return doc, nil
}

func listItems(v *wire.Value) []*wire.Value {
	if v == nil || v.Kind != wire.KindList {
		return nil
	}
	return v.Items
}

// httpError maps an RPC status onto the HTTP vocabulary. Anything
// unclassified renders as a generic 500; RPC diagnostics never pass through.
func httpError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, st.Message())
	case codes.AlreadyExists:
		return echo.NewHTTPError(http.StatusConflict, st.Message())
	case codes.NotFound:
		return echo.NewHTTPError(http.StatusNotFound, st.Message())
	case codes.FailedPrecondition:
		return echo.NewHTTPError(http.StatusConflict, st.Message())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
