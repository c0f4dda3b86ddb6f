package storage

import (
	"alcyxob/tt-trainer/internal/config"
	"alcyxob/tt-trainer/internal/domain"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReportKey(t *testing.T) {
	got := ReportKey("6612c0ffee", "abc")
	if want := "reports/6612c0ffee/abc.json"; got != want {
		t.Errorf("ReportKey = %q, want %q", got, want)
	}
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", true, ""},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://localhost:9000", true, "http://localhost:9000"},
	}
	for _, c := range cases {
		if got := endpointURL(c.endpoint, c.useSSL); got != c.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", c.endpoint, c.useSSL, got, c.want)
		}
	}
}

func TestNewS3ArchiveDisabledWithoutBucket(t *testing.T) {
	_, err := NewS3Archive(context.Background(), config.S3Config{Region: "us-east-1"})
	if !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("err = %v, want ErrArchiveDisabled", err)
	}
}

func TestPresignedReportURL(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), config.S3Config{
		Endpoint:        "localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		BucketName:      "reports",
	})
	if err != nil {
		t.Fatalf("NewS3Archive: %v", err)
	}

	url, err := archive.PresignedReportURL(context.Background(), "reports/s1/r1.json", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:9000/") || !strings.Contains(url, "reports/s1/r1.json") {
		t.Errorf("url = %q", url)
	}
	if !strings.Contains(url, "X-Amz-Expires=60") {
		t.Errorf("url %q does not carry the expiry", url)
	}

	if err := archive.PutReport(context.Background(), &domain.RunReport{}); err == nil {
		t.Error("PutReport without object key succeeded")
	}
}
