package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ehn-dcc-development/hcert-service/internal/api"
	"github.com/ehn-dcc-development/hcert-service/internal/conformance"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
)

// defaultSuiteSample is used by GET /testsuite when no sample is named
const defaultSuiteSample = "vaccination"

// HandleTestSuite godoc
//
//	@Summary		Run the conformance test suite
//	@Description	Encodes a health certificate with every chain variant (correct and deliberately broken)
//	@Description	and reports whether the service verifier reached the expected outcome.
//	@Description
//	@Description	GET runs the suite on a built-in sample (`?sample=vaccination|recovery|test`, default vaccination).
//	@Description	POST runs it on the health certificate in the request body.
//	@Description	The tokens in the report can be used to test other verifier implementations.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			sample	query		string					false	"sample name"	Enums(vaccination, recovery, test)
//	@Param			request	body		dgc.HealthCertificate	false	"health certificate claims (POST only)"
//	@Success		200		{object}	conformance.Report
//	@Failure		400		{object}	api.ErrorResponse	"invalid claims"
//	@Failure		404		{object}	api.ErrorResponse	"unknown sample"
//	@Router			/testsuite [get]
//	@Router			/testsuite [post]
func HandleTestSuite(suite *conformance.Suite) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cert *dgc.HealthCertificate

		if r.Method == http.MethodPost {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to read request body"))
				return
			}
			cert, err = dgc.ParseJSON(body)
			if err != nil {
				api.RespondWithErrorResponse(w, r, api.WrapInvalidClaimsError(err, "invalid health certificate"))
				return
			}
		} else {
			name := r.URL.Query().Get("sample")
			if name == "" {
				name = defaultSuiteSample
			}
			data, ok := dgc.Samples[name]
			if !ok {
				api.RespondWithErrorResponse(w, r, api.NewNotFoundError("unknown sample "+name))
				return
			}
			parsed, err := dgc.ParseJSON([]byte(data))
			if err != nil {
				api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "invalid sample "+name))
				return
			}
			cert = parsed
		}

		report := suite.Run(cert)

		logger.ContextWithLogAttrs(r.Context(),
			slog.Int("passed", report.Passed),
			slog.Int("failed", report.Failed),
		)

		api.RespondWithJSONPayload(w, http.StatusOK, report)
	}
}
