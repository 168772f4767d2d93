package nasa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

func newTestMarsClient(t *testing.T, handler http.HandlerFunc) *MarsClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test_key", logger.NewTestLogger(), WithBaseURL(server.URL))
	return NewMarsClient(client)
}

func TestAvailableRovers(t *testing.T) {
	rovers := AvailableRovers()
	assert.Equal(t, []string{"curiosity", "opportunity", "perseverance", "spirit"}, rovers)
}

func TestRoverCameras(t *testing.T) {
	cameras, err := RoverCameras("curiosity")
	require.NoError(t, err)
	assert.Contains(t, cameras, "MAST")
	assert.Len(t, cameras, 7)

	cameras, err = RoverCameras("Perseverance")
	require.NoError(t, err)
	assert.Contains(t, cameras, "SHERLOC_WATSON")

	_, err = RoverCameras("sojourner")
	assert.Error(t, err)
}

func TestGetManifest(t *testing.T) {
	mc := newTestMarsClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mars-photos/api/v1/manifests/curiosity", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"photo_manifest": MissionManifest{
				Name:        "Curiosity",
				LandingDate: "2012-08-06",
				LaunchDate:  "2011-11-26",
				Status:      "active",
				MaxSol:      4100,
				MaxDate:     "2024-01-15",
				TotalPhotos: 695000,
			},
		})
	})

	manifest, err := mc.GetManifest(context.Background(), "Curiosity")
	require.NoError(t, err)

	assert.Equal(t, "Curiosity", manifest.Name)
	assert.Equal(t, "active", manifest.Status)
	assert.Equal(t, 4100, manifest.MaxSol)
	assert.Equal(t, 695000, manifest.TotalPhotos)
}

func TestGetPhotosBySol(t *testing.T) {
	mc := newTestMarsClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mars-photos/api/v1/rovers/curiosity/photos", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("sol"))
		assert.Equal(t, "MAST", r.URL.Query().Get("camera"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"photos": []MarsPhoto{
				{
					ID:        102693,
					Sol:       1000,
					Camera:    MarsCamera{Name: "MAST", FullName: "Mast Camera"},
					ImgSrc:    "https://mars.nasa.gov/img/1.jpg",
					EarthDate: "2015-05-30",
					Rover:     MarsRover{Name: "Curiosity", Status: "active"},
				},
			},
		})
	})

	photos, err := mc.GetPhotosBySol(context.Background(), "curiosity", 1000, "mast", 2)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, 102693, photos[0].ID)
	assert.Equal(t, "MAST", photos[0].Camera.Name)
}

func TestGetPhotosBySolValidation(t *testing.T) {
	mc := newTestMarsClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	ctx := context.Background()

	_, err := mc.GetPhotosBySol(ctx, "curiosity", -1, "", 0)
	assert.Error(t, err, "negative sol")

	_, err = mc.GetPhotosBySol(ctx, "voyager", 10, "", 0)
	assert.Error(t, err, "unknown rover")

	_, err = mc.GetPhotosBySol(ctx, "spirit", 10, "MAST", 0)
	require.Error(t, err, "camera not on this rover")

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Message, "spirit")
}

func TestGetPhotosByEarthDate(t *testing.T) {
	mc := newTestMarsClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2021-03-05", r.URL.Query().Get("earth_date"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"photos": []MarsPhoto{{ID: 1}, {ID: 2}},
		})
	})

	photos, err := mc.GetPhotosByEarthDate(context.Background(), "perseverance", "2021-03-05", "", 0)
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	_, err = mc.GetPhotosByEarthDate(context.Background(), "perseverance", "03/05/2021", "", 0)
	assert.Error(t, err, "malformed earth date")
}

func TestGetLatestPhotos(t *testing.T) {
	mc := newTestMarsClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mars-photos/api/v1/rovers/perseverance/latest_photos", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"latest_photos": []MarsPhoto{{ID: 42, Sol: 1050}},
		})
	})

	photos, err := mc.GetLatestPhotos(context.Background(), "perseverance")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, 1050, photos[0].Sol)
}
