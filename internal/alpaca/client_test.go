package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openskies/alpaca-console/internal/models"
)

func TestBuildURL(t *testing.T) {
	c := NewClient("http://scope.local:11111", models.DeviceTypeTelescope, 2, nil)
	assert.Equal(t, "http://scope.local:11111/api/v1/telescope/2/slewtocoordinates",
		c.BuildURL("slewtocoordinates"))
}

func TestGetProperty(t *testing.T) {
	t.Run("returns the envelope value", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/focuser/0/position", r.URL.Path)
			assert.NotEmpty(t, r.URL.Query().Get("ClientID"))
			assert.NotEmpty(t, r.URL.Query().Get("ClientTransactionID"))
			w.Write([]byte(`{"Value": 12345, "ErrorNumber": 0, "ErrorMessage": ""}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeFocuser, 0, nil)
		v, err := c.GetProperty(context.Background(), "position")
		require.NoError(t, err)

		n, ok := v.AsNumber()
		require.True(t, ok)
		assert.Equal(t, 12345.0, n)
	})

	t.Run("classifies device errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Value": null, "ErrorNumber": 1025, "ErrorMessage": "Invalid value"}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeFocuser, 0, nil)
		_, err := c.GetProperty(context.Background(), "position")

		require.Error(t, err)
		assert.Equal(t, ErrorDevice, KindOf(err))

		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 1025, ae.DeviceCode)
		assert.Equal(t, "Invalid value", ae.DeviceMessage)
	})

	t.Run("classifies non-2xx responses as server errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeFocuser, 0, nil)
		_, err := c.GetProperty(context.Background(), "position")

		require.Error(t, err)
		assert.Equal(t, ErrorServer, KindOf(err))

		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, http.StatusInternalServerError, ae.StatusCode)
	})

	t.Run("classifies deadline expiry as timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeFocuser, 0, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := c.GetProperty(ctx, "position")
		require.Error(t, err)
		assert.Equal(t, ErrorTimeout, KindOf(err))
	})

	t.Run("classifies refused connections as network errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // port is now closed

		c := NewClient(srv.URL, models.DeviceTypeFocuser, 0, nil)
		_, err := c.GetProperty(context.Background(), "position")

		require.Error(t, err)
		assert.Equal(t, ErrorNetwork, KindOf(err))
	})
}

func TestSetProperty(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		assert.Equal(t, http.MethodPut, r.Method)
		w.Write([]byte(`{"ErrorNumber": 0, "ErrorMessage": ""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, models.DeviceTypeTelescope, 0, nil)
	require.NoError(t, c.SetProperty(context.Background(), "connected", true))

	// The form parameter uses the Alpaca canonical casing.
	assert.Equal(t, []string{"true"}, gotForm["Connected"])
	assert.NotEmpty(t, gotForm["ClientID"])
}

func TestCallMethod(t *testing.T) {
	t.Run("passes params and returns the value", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "2.5", r.PostForm.Get("Duration"))
			w.Write([]byte(`{"Value": true, "ErrorNumber": 0, "ErrorMessage": ""}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeCamera, 0, nil)
		v, err := c.CallMethod(context.Background(), "startexposure", map[string]interface{}{
			"Duration": 2.5,
			"Light":    true,
		})
		require.NoError(t, err)

		b, ok := v.AsBool()
		require.True(t, ok)
		assert.True(t, b)
	})

	t.Run("surfaces envelope errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ErrorNumber": 1031, "ErrorMessage": "Not connected"}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, models.DeviceTypeCamera, 0, nil)
		_, err := c.CallMethod(context.Background(), "startexposure", nil)
		assert.Equal(t, ErrorDevice, KindOf(err))
	})
}

func TestGetRawSendsAcceptHeader(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ImageBytesMIME, r.Header.Get("Accept"))
		w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, models.DeviceTypeCamera, 0, nil)
	body, err := c.GetRaw(context.Background(), "imagearray", ImageBytesMIME)
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestCanonicalParam(t *testing.T) {
	assert.Equal(t, "Connected", canonicalParam("connected"))
	assert.Equal(t, "CoolerOn", canonicalParam("cooleron"))
	assert.Equal(t, "TempComp", canonicalParam("tempcomp"))
	assert.Equal(t, "Slaved", canonicalParam("slaved"))
	assert.Equal(t, "", canonicalParam(""))
}
