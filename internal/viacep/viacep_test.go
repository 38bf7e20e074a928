package viacep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAndValidate(t *testing.T) {
	assert.Equal(t, "01310100", Clean("01310-100"))
	assert.Equal(t, "01310100", Clean("  013 10 100  "))
	assert.Equal(t, "", Clean("abc"))

	assert.True(t, Validate("01310-100"))
	assert.True(t, Validate("01310100"))
	assert.False(t, Validate("0131010"))
	assert.False(t, Validate("013101000"))
	assert.False(t, Validate(""))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "01310-100", Format("01310100"))
	assert.Equal(t, "01310-100", Format("01310-100"))
	assert.Equal(t, "not a cep", Format("not a cep"), "an unformattable value comes back unchanged")
}

func TestGetAddressByCEP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.Header().Set("Content-Type", "application/json")
		switch request.URL.Path {
		case "/01310100/json/":
			_, _ = response.Write([]byte(`{
				"cep": "01310-100",
				"logradouro": "Avenida Paulista",
				"complemento": "de 612 a 1510 - lado par",
				"bairro": "Bela Vista",
				"localidade": "São Paulo",
				"uf": "SP"
			}`))
		case "/99999999/json/":
			_, _ = response.Write([]byte(`{"erro": true}`))
		default:
			response.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	ctx := context.Background()

	t.Run("known CEP", func(t *testing.T) {
		address, err := client.GetAddressByCEP(ctx, "01310-100")
		require.NoError(t, err)
		assert.Equal(t, &AddressData{
			CEP:          "01310-100",
			Street:       "Avenida Paulista",
			Complement:   "de 612 a 1510 - lado par",
			Neighborhood: "Bela Vista",
			City:         "São Paulo",
			State:        "SP",
		}, address)
	})

	t.Run("directory answers with erro=true", func(t *testing.T) {
		_, err := client.GetAddressByCEP(ctx, "99999-999")
		assert.ErrorIs(t, err, ErrCEPNotFound)
	})

	t.Run("directory answers 404", func(t *testing.T) {
		_, err := client.GetAddressByCEP(ctx, "12345-678")
		assert.ErrorIs(t, err, ErrCEPNotFound)
	})

	t.Run("malformed CEP fails before any network call", func(t *testing.T) {
		_, err := client.GetAddressByCEP(ctx, "123")
		assert.ErrorIs(t, err, ErrInvalidCEP)
	})
}

func TestGetAddressByCEPTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)

	_, err := client.GetAddressByCEP(context.Background(), "01310100")
	assert.ErrorIs(t, err, ErrLookupFailed)
}
