package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ehn-dcc-development/hcert-service/internal/api"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// TrustListIDHeader names the snapshot a trust list response was taken from
const TrustListIDHeader = "X-Trust-List-Id"

// HandleCertificateByKeyID godoc
//
//	@Summary		Get a certificate by kid
//	@Description	Returns the DER certificate with the kid from the current trust list.
//	@Description
//	@Description	The kid is the URL-safe base64 encoding (padding optional) of the first 8 bytes of the SHA-256 of the certificate.
//	@Description	With `Accept: text/plain` the certificate is returned as standard base64, otherwise as binary DER.
//	@Tags			Trust List
//	@Produce		plain,octet-stream
//	@Param			kid	path		string	true	"URL-safe base64 kid"	example(dGVzdGtpZDE)
//	@Success		200	{string}	string	"certificate"
//	@Failure		400	{object}	api.ErrorResponse	"kid is not valid base64"
//	@Failure		404	{object}	api.ErrorResponse	"unknown key identifier"
//	@Router			/cert/{kid} [get]
func HandleCertificateByKeyID(trustList *trustlist.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawKid := chi.URLParam(r, "kid")
		logger.ContextWithLogAttrs(r.Context(), slog.String("kid", rawKid))

		kid, err := crypto.DecodeKeyID(rawKid)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		cert, err := trustList.CertificateByKeyID(kid)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		if strings.Contains(r.Header.Get("Accept"), "text/plain") {
			api.RespondWithBytes(w, http.StatusOK, "text/plain; charset=utf-8", []byte(base64.StdEncoding.EncodeToString(cert.Raw())))
			return
		}
		api.RespondWithBytes(w, http.StatusOK, "application/octet-stream", cert.Raw())
	}
}

// HandleTrustListContent godoc
//
//	@Summary		Get the trust list content
//	@Description	Returns the CBOR trust list (version 2) of all trusted certificates.
//	@Description
//	@Description	The X-Trust-List-Id header identifies the snapshot; fetch /cert/sigv2 and compare the header to
//	@Description	make sure content and signature belong together.
//	@Tags			Trust List
//	@Produce		octet-stream
//	@Success		200	{string}	string	"CBOR trust list content"
//	@Router			/cert/listv2 [get]
func HandleTrustListContent(trustList *trustlist.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := trustList.Current()
		w.Header().Set(TrustListIDHeader, snapshot.ID)
		api.RespondWithBytes(w, http.StatusOK, "application/octet-stream", snapshot.Content)
	}
}

// HandleTrustListSignature godoc
//
//	@Summary		Get the trust list signature
//	@Description	Returns the COSE_Sign1 signature over the trust list content hash and validity window.
//	@Tags			Trust List
//	@Produce		octet-stream
//	@Success		200	{string}	string	"COSE_Sign1 trust list signature"
//	@Router			/cert/sigv2 [get]
func HandleTrustListSignature(trustList *trustlist.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := trustList.Current()
		w.Header().Set(TrustListIDHeader, snapshot.ID)
		api.RespondWithBytes(w, http.StatusOK, "application/octet-stream", snapshot.Signature)
	}
}
