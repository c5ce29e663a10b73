package handlers

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ehn-dcc-development/hcert-service/internal/api"
	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
)

// GenerateResponse holds the token and the output of every encode stage (hex encoded)
type GenerateResponse struct {
	Token      string `json:"token" example:"HC1:6BFOXN%TS3DH0YOJ58S..."`
	ClaimsCBOR string `json:"claimsCbor" example:"a4636e616da4..."`
	Envelope   string `json:"envelope" example:"a4016241540..."`
	COSE       string `json:"cose" example:"d2844da2..."`
	Compressed string `json:"compressed" example:"78dabbd4..."`
	Base45     string `json:"base45" example:"6BFOXN%TS3DH0YOJ58S..."`
}

// VerifyRequest is the JSON body of POST /verify
type VerifyRequest struct {
	Token string `json:"token" example:"HC1:6BFOXN%TS3DH0YOJ58S..."`
}

// VerifyResponse is the outcome of decoding a token
type VerifyResponse struct {
	Valid    bool                      `json:"valid"`
	Accepted bool                      `json:"accepted"`
	Result   *chain.VerificationResult `json:"result"`
	Claims   *dgc.HealthCertificate    `json:"claims,omitempty"`
}

func newGenerateResponse(res *chain.Result) GenerateResponse {
	return GenerateResponse{
		Token:      res.Token,
		ClaimsCBOR: hex.EncodeToString(res.ClaimsCBOR),
		Envelope:   hex.EncodeToString(res.Envelope),
		COSE:       hex.EncodeToString(res.COSE),
		Compressed: hex.EncodeToString(res.Compressed),
		Base45:     res.Base45,
	}
}

// countToken increments the token counter if one is configured
func countToken(tokens *prometheus.CounterVec, operation, outcome string) {
	if tokens == nil {
		return
	}
	tokens.WithLabelValues(operation, outcome).Inc()
}

// HandleGenerate godoc
//
//	@Summary		Generate a token
//	@Description	Encodes a JSON health certificate into an HC1 token signed with the service key.
//	@Description
//	@Description	The response includes the output of every encode stage so clients can debug their own implementation.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dgc.HealthCertificate	true	"health certificate claims"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	api.ErrorResponse	"invalid claims"
//	@Failure		500		{object}	api.ErrorResponse	"signing failed"
//	@Router			/generate [post]
func HandleGenerate(encoder *chain.Chain, tokens *prometheus.CounterVec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to read request body"))
			return
		}

		cert, err := dgc.ParseJSON(body)
		if err != nil {
			countToken(tokens, "encode", "rejected")
			api.RespondWithErrorResponse(w, r, api.WrapInvalidClaimsError(err, "invalid health certificate"))
			return
		}

		res, err := encoder.Encode(cert)
		if err != nil {
			countToken(tokens, "encode", "error")
			api.RespondWithErrorResponse(w, r, err)
			return
		}
		countToken(tokens, "encode", "ok")

		api.RespondWithJSONPayload(w, http.StatusOK, newGenerateResponse(res))
	}
}

// HandleVerify godoc
//
//	@Summary		Verify a token
//	@Description	Decodes an HC1 token and verifies its signature against the current trust list.
//	@Description
//	@Description	The token is sent either as JSON `{"token": "..."}` or as a `text/plain` body.
//	@Description	Decoding is best effort: the result reports every stage that succeeded and the claims
//	@Description	are returned whenever they could be recovered, even if the signature did not verify.
//	@Tags			Tokens
//	@Accept			json,plain
//	@Produce		json
//	@Param			request	body		VerifyRequest	true	"token"
//	@Success		200		{object}	VerifyResponse
//	@Failure		400		{object}	api.ErrorResponse	"missing token"
//	@Router			/verify [post]
func HandleVerify(verifier *chain.Chain, tokens *prometheus.CounterVec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to read request body"))
			return
		}

		token := strings.TrimSpace(string(body))
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
			var req VerifyRequest
			if err := json.Unmarshal(body, &req); err != nil {
				api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to parse request body"))
				return
			}
			token = strings.TrimSpace(req.Token)
		}
		if token == "" {
			api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("token is required"))
			return
		}

		claims, result := verifier.Decode(token)

		outcome := "rejected"
		if result.Accepted() {
			outcome = "accepted"
		}
		countToken(tokens, "decode", outcome)

		logger.ContextWithLogAttrs(r.Context(),
			slog.String("kid", result.KeyID),
			slog.Bool("accepted", result.Accepted()),
		)

		api.RespondWithJSONPayload(w, http.StatusOK, VerifyResponse{
			Valid:    result.Valid(),
			Accepted: result.Accepted(),
			Result:   result,
			Claims:   claims,
		})
	}
}

// HandleSampleToken godoc
//
//	@Summary		Get a sample token
//	@Description	Returns a freshly signed token for one of the built-in sample certificates,
//	@Description	ready to be rendered as a QR code.
//	@Tags			Tokens
//	@Produce		plain
//	@Param			sample	path		string	true	"sample name"	Enums(vaccination, recovery, test)
//	@Success		200		{string}	string	"HC1 token"
//	@Failure		404		{object}	api.ErrorResponse	"unknown sample"
//	@Router			/qrc/{sample} [get]
func HandleSampleToken(encoder *chain.Chain, tokens *prometheus.CounterVec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "sample")

		data, ok := dgc.Samples[name]
		if !ok {
			api.RespondWithErrorResponse(w, r, api.NewNotFoundError("unknown sample "+name))
			return
		}
		cert, err := dgc.ParseJSON([]byte(data))
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "invalid sample "+name))
			return
		}

		res, err := encoder.Encode(cert)
		if err != nil {
			countToken(tokens, "encode", "error")
			api.RespondWithErrorResponse(w, r, err)
			return
		}
		countToken(tokens, "encode", "ok")

		api.RespondWithBytes(w, http.StatusOK, "text/plain; charset=utf-8", []byte(res.Token))
	}
}
