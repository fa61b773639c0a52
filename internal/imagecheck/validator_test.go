package imagecheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL_NoURL(t *testing.T) {
	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), "")
	assert.False(t, res.Valid)
	assert.Equal(t, "No URL provided", res.Reason)
}

func TestValidateURL_HeadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), srv.URL+"/cover.jpg")
	assert.True(t, res.Valid)
}

func TestValidateURL_WrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), srv.URL+"/cover.jpg")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "content-type")
}

func TestValidateURL_HeadRejectedRangedGetSucceeds(t *testing.T) {
	var sawRange bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawRange = r.Header.Get("Range") == "bytes=0-1023"
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusPartialContent)
		w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), srv.URL+"/cover.png")
	assert.True(t, res.Valid)
	assert.True(t, sawRange, "fallback GET should request only the first 1KB")
}

func TestValidateURL_NotFoundClassifiedDistinctly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), srv.URL+"/gone.jpg")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "404")
}

func TestValidateURL_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	v := NewValidator(time.Second)
	res := v.ValidateURL(context.Background(), srv.URL+"/cover.jpg")
	assert.False(t, res.Valid)
	assert.Equal(t, "image URL unreachable", res.Reason)
}
