// Package viacep is a client for the ViaCEP postal-code directory. A
// CEP (8-digit Brazilian postal code) resolves to a structured
// address; the three failure modes — malformed code, unknown code,
// transport trouble — map to distinct sentinel errors so callers can
// offer "fix your input" and "try again" separately.
package viacep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const cepLength = 8

// ErrInvalidCEP is returned before any network call when the cleaned
// postal code is not exactly 8 digits.
var ErrInvalidCEP = errors.New("invalid CEP")

// ErrCEPNotFound means the directory answered but knows no such code.
var ErrCEPNotFound = errors.New("CEP not found")

// ErrLookupFailed covers transport errors and malformed responses.
var ErrLookupFailed = errors.New("CEP lookup failed")

// AddressData is the directory's answer. Complement may be empty.
type AddressData struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        bool   `json:"erro"`
}

// Client queries one ViaCEP-compatible endpoint with a bounded timeout
// and a single retry for transient failures.
type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(1).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			return err != nil || response.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient}
}

// Clean strips every non-digit character from a postal code.
func Clean(cep string) string {
	var b strings.Builder
	b.Grow(len(cep))
	for _, r := range cep {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Validate reports whether the value cleans to exactly 8 digits.
func Validate(cep string) bool {
	return len(Clean(cep)) == cepLength
}

// Format renders a CEP as NNNNN-NNN; anything that does not clean to
// 8 digits comes back unchanged.
func Format(cep string) string {
	cleaned := Clean(cep)
	if len(cleaned) != cepLength {
		return cep
	}

	return cleaned[:5] + "-" + cleaned[5:]
}

// GetAddressByCEP resolves a postal code to a structured address.
func (c *Client) GetAddressByCEP(ctx context.Context, cep string) (*AddressData, error) {
	cleaned := Clean(cep)
	if len(cleaned) != cepLength {
		return nil, ErrInvalidCEP
	}

	var result viaCEPResponse
	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/" + cleaned + "/json/")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, err)
	}
	if response.StatusCode() == http.StatusNotFound {
		return nil, ErrCEPNotFound
	}
	if !response.IsSuccess() {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, response.StatusCode())
	}
	if result.Erro {
		return nil, ErrCEPNotFound
	}

	return &AddressData{
		CEP:          result.CEP,
		Street:       result.Logradouro,
		Complement:   result.Complemento,
		Neighborhood: result.Bairro,
		City:         result.Localidade,
		State:        result.UF,
	}, nil
}
