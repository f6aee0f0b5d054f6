// Package upload publishes finished videos to YouTube through the Data API
// and keeps a local JSON log of every upload.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/types"
)

// Uploader talks to the YouTube Data API v3.
type Uploader struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates an Uploader.
func New(cfg *config.Config, log *logrus.Logger) *Uploader {
	return &Uploader{cfg: cfg, log: log}
}

// Result is what an upload produced.
type Result struct {
	VideoID  string `json:"video_id"`
	VideoURL string `json:"video_url"`
	Title    string `json:"title"`
}

// Upload pushes a completed project's video to YouTube as a Short. The
// caption track is attached afterwards, non-fatally.
func (u *Uploader) Upload(ctx context.Context, project *types.Project, caps []types.CaptionSegment) (*Result, error) {
	if project.FinalVideoPath == "" {
		return nil, fmt.Errorf("project %s has no final video", project.ID)
	}
	if project.Script == nil {
		return nil, fmt.Errorf("project %s has no script for metadata", project.ID)
	}

	client, err := u.oauthClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	meta := BuildMetadata(project.Script)
	u.log.WithFields(logrus.Fields{
		"project": project.ID,
		"title":   meta.Title,
	}).Info("[upload] uploading to YouTube")

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           u.cfg.Upload.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.cfg.Upload.Visibility,
			SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
		},
	}

	f, err := os.Open(project.FinalVideoPath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	inserted, err := svc.Videos.Insert([]string{"snippet", "status"}, video).NotifySubscribers(u.cfg.Upload.NotifySubscribers).Media(f).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	result := &Result{
		VideoID:  inserted.Id,
		VideoURL: "https://www.youtube.com/watch?v=" + inserted.Id,
		Title:    meta.Title,
	}

	if len(caps) > 0 {
		if err := u.attachCaptions(ctx, svc, inserted.Id, project, caps); err != nil {
			u.log.WithError(err).Warn("[upload] caption track upload failed")
		}
	}

	if err := u.writeLog(project, result); err != nil {
		u.log.WithError(err).Warn("[upload] could not write upload log")
	}

	u.log.WithField("url", result.VideoURL).Info("[upload] upload complete")
	return result, nil
}

// attachCaptions writes the caption windows as an SRT file and uploads it
// as a Hindi caption track.
func (u *Uploader) attachCaptions(ctx context.Context, svc *youtube.Service, videoID string, project *types.Project, caps []types.CaptionSegment) error {
	srtPath := filepath.Join(u.cfg.Paths.Logs, project.ID+".srt")
	if err := os.WriteFile(srtPath, []byte(ToSRT(caps)), 0644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}

	srt, err := os.Open(srtPath)
	if err != nil {
		return err
	}
	defer srt.Close()

	caption := &youtube.Caption{
		Snippet: &youtube.CaptionSnippet{
			VideoId:  videoID,
			Language: u.cfg.Upload.DefaultLanguage,
			Name:     "Hindi",
		},
	}
	_, err = svc.Captions.Insert([]string{"snippet"}, caption).Media(srt).Do()
	if err != nil {
		return fmt.Errorf("insert caption track: %w", err)
	}
	return nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeForceSslScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

func (u *Uploader) writeLog(project *types.Project, result *Result) error {
	entry := map[string]any{
		"project_id":  project.ID,
		"video_id":    result.VideoID,
		"video_url":   result.VideoURL,
		"title":       result.Title,
		"topic":       project.Topic,
		"video_file":  project.FinalVideoPath,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	logFile := filepath.Join(u.cfg.Paths.Logs, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	return os.WriteFile(logFile, data, 0644)
}
