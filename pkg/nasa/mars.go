package nasa

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

// Rover names accepted by the Mars Rover Photos API
const (
	RoverCuriosity    = "curiosity"
	RoverOpportunity  = "opportunity"
	RoverSpirit       = "spirit"
	RoverPerseverance = "perseverance"
)

// roverCameras maps each rover to the cameras it carries
var roverCameras = map[string][]string{
	RoverCuriosity: {
		"FHAZ", "RHAZ", "MAST", "CHEMCAM", "MAHLI", "MARDI", "NAVCAM",
	},
	RoverOpportunity: {
		"FHAZ", "RHAZ", "NAVCAM", "PANCAM", "MINITES",
	},
	RoverSpirit: {
		"FHAZ", "RHAZ", "NAVCAM", "PANCAM", "MINITES",
	},
	RoverPerseverance: {
		"EDL_RUCAM", "EDL_RDCAM", "EDL_DDCAM", "EDL_PUCAM1", "EDL_PUCAM2",
		"NAVCAM_LEFT", "NAVCAM_RIGHT", "MCZ_RIGHT", "MCZ_LEFT",
		"FRONT_HAZCAM_LEFT_A", "FRONT_HAZCAM_RIGHT_A",
		"REAR_HAZCAM_LEFT", "REAR_HAZCAM_RIGHT", "SKYCAM", "SHERLOC_WATSON",
	},
}

// MarsPhoto represents a single rover photo record
type MarsPhoto struct {
	ID        int        `json:"id"`
	Sol       int        `json:"sol"`
	Camera    MarsCamera `json:"camera"`
	ImgSrc    string     `json:"img_src"`
	EarthDate string     `json:"earth_date"`
	Rover     MarsRover  `json:"rover"`
}

// MarsCamera identifies the camera a photo was taken with
type MarsCamera struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RoverID  int    `json:"rover_id"`
	FullName string `json:"full_name"`
}

// MarsRover describes the rover a photo belongs to
type MarsRover struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	LandingDate string `json:"landing_date"`
	LaunchDate  string `json:"launch_date"`
	Status      string `json:"status"`
}

// MissionManifest is the per-rover mission summary
type MissionManifest struct {
	Name        string        `json:"name"`
	LandingDate string        `json:"landing_date"`
	LaunchDate  string        `json:"launch_date"`
	Status      string        `json:"status"`
	MaxSol      int           `json:"max_sol"`
	MaxDate     string        `json:"max_date"`
	TotalPhotos int           `json:"total_photos"`
	Photos      []ManifestSol `json:"photos"`
}

// ManifestSol summarises the photos taken on one sol
type ManifestSol struct {
	Sol         int      `json:"sol"`
	EarthDate   string   `json:"earth_date"`
	TotalPhotos int      `json:"total_photos"`
	Cameras     []string `json:"cameras"`
}

type marsPhotosResponse struct {
	Photos []MarsPhoto `json:"photos"`
}

type marsLatestPhotosResponse struct {
	LatestPhotos []MarsPhoto `json:"latest_photos"`
}

type marsManifestResponse struct {
	PhotoManifest MissionManifest `json:"photo_manifest"`
}

// MarsClient talks to NASA's Mars Rover Photos API
type MarsClient struct {
	client *Client
	logger logger.Logger
}

// NewMarsClient creates a Mars Rover Photos client on top of the shared
// NASA client
func NewMarsClient(client *Client) *MarsClient {
	return &MarsClient{client: client, logger: client.logger}
}

// AvailableRovers returns the rover names the API knows about
func AvailableRovers() []string {
	rovers := make([]string, 0, len(roverCameras))
	for rover := range roverCameras {
		rovers = append(rovers, rover)
	}
	sort.Strings(rovers)
	return rovers
}

// RoverCameras returns the camera names carried by the given rover
func RoverCameras(rover string) ([]string, error) {
	cameras, ok := roverCameras[strings.ToLower(rover)]
	if !ok {
		return nil, apierrors.Validation("unknown rover %q, expected one of %s",
			rover, strings.Join(AvailableRovers(), ", "))
	}
	out := make([]string, len(cameras))
	copy(out, cameras)
	return out, nil
}

// GetManifest fetches the mission manifest for a rover
func (mc *MarsClient) GetManifest(ctx context.Context, rover string) (*MissionManifest, error) {
	rover, err := validateRover(rover)
	if err != nil {
		return nil, err
	}

	var resp marsManifestResponse
	if err := mc.client.getJSON(ctx, mc.client.marsManifestURL(rover), &resp); err != nil {
		return nil, err
	}

	mc.logger.DebugWithFields("fetched mission manifest", map[string]interface{}{
		"rover":        resp.PhotoManifest.Name,
		"status":       resp.PhotoManifest.Status,
		"total_photos": resp.PhotoManifest.TotalPhotos,
	})

	return &resp.PhotoManifest, nil
}

// GetPhotosBySol fetches photos taken on a specific Martian sol. Camera is
// optional; page 0 means the API default.
func (mc *MarsClient) GetPhotosBySol(ctx context.Context, rover string, sol int, camera string, page int) ([]MarsPhoto, error) {
	rover, err := validateRover(rover)
	if err != nil {
		return nil, err
	}
	if sol < 0 {
		return nil, apierrors.Validation("sol cannot be negative, got %d", sol)
	}
	camera, err = validateCamera(rover, camera)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("sol", strconv.Itoa(sol))
	if camera != "" {
		params.Set("camera", camera)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	var resp marsPhotosResponse
	if err := mc.client.getJSON(ctx, mc.client.marsPhotosURL(rover, params), &resp); err != nil {
		return nil, err
	}

	return resp.Photos, nil
}

// GetPhotosByEarthDate fetches photos taken on a specific Earth date
func (mc *MarsClient) GetPhotosByEarthDate(ctx context.Context, rover, earthDate, camera string, page int) ([]MarsPhoto, error) {
	rover, err := validateRover(rover)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse(dateLayout, earthDate); err != nil {
		return nil, apierrors.Validation("invalid earth date %q, expected YYYY-MM-DD", earthDate)
	}
	camera, err = validateCamera(rover, camera)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("earth_date", earthDate)
	if camera != "" {
		params.Set("camera", camera)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	var resp marsPhotosResponse
	if err := mc.client.getJSON(ctx, mc.client.marsPhotosURL(rover, params), &resp); err != nil {
		return nil, err
	}

	return resp.Photos, nil
}

// GetLatestPhotos fetches the most recent photos from a rover
func (mc *MarsClient) GetLatestPhotos(ctx context.Context, rover string) ([]MarsPhoto, error) {
	rover, err := validateRover(rover)
	if err != nil {
		return nil, err
	}

	var resp marsLatestPhotosResponse
	if err := mc.client.getJSON(ctx, mc.client.marsLatestPhotosURL(rover), &resp); err != nil {
		return nil, err
	}

	return resp.LatestPhotos, nil
}

// validateRover normalises and validates a rover name
func validateRover(rover string) (string, error) {
	rover = strings.ToLower(strings.TrimSpace(rover))
	if _, ok := roverCameras[rover]; !ok {
		return "", apierrors.Validation("unknown rover %q, expected one of %s",
			rover, strings.Join(AvailableRovers(), ", "))
	}
	return rover, nil
}

// validateCamera normalises a camera name and checks the rover carries it.
// An empty camera is allowed and means all cameras.
func validateCamera(rover, camera string) (string, error) {
	if camera == "" {
		return "", nil
	}
	camera = strings.ToUpper(strings.TrimSpace(camera))
	for _, known := range roverCameras[rover] {
		if known == camera {
			return camera, nil
		}
	}
	return "", apierrors.Validation("rover %s has no camera %q, expected one of %s",
		rover, camera, strings.Join(roverCameras[rover], ", "))
}
