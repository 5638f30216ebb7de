package azure

import (
	"bytes"
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewBlobStorageClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name          string
		accountName   string
		accountKey    string
		containerName string
		wantErr       bool
	}{
		{
			name:          "valid configuration",
			accountName:   "testaccount",
			accountKey:    "dGVzdGtleQ==", // base64 encoded "testkey"
			containerName: "mar-reports",
			wantErr:       false,
		},
		{
			name:          "missing account name",
			accountName:   "",
			accountKey:    "dGVzdGtleQ==",
			containerName: "mar-reports",
			wantErr:       true,
		},
		{
			name:          "missing account key",
			accountName:   "testaccount",
			accountKey:    "",
			containerName: "mar-reports",
			wantErr:       true,
		},
		{
			name:          "missing container name",
			accountName:   "testaccount",
			accountKey:    "dGVzdGtleQ==",
			containerName: "",
			wantErr:       true,
		},
		{
			name:          "invalid account key format",
			accountName:   "testaccount",
			accountKey:    "invalid-key-format",
			containerName: "mar-reports",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewBlobStorageClient(tt.accountName, tt.accountKey, tt.containerName, logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBlobStorageClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && client == nil {
				t.Error("NewBlobStorageClient() returned nil client")
			}
			if !tt.wantErr && client.containerName != tt.containerName {
				t.Errorf("containerName = %v, want %v", client.containerName, tt.containerName)
			}
		})
	}
}

func TestMockBlobStorageClient_UploadDownload(t *testing.T) {
	mock := NewMockBlobStorageClient(zap.NewNop())
	ctx := context.Background()

	data := []byte("%PDF-1.4 test report content")
	blobName, err := mock.UploadReport(ctx, "mar_2025-03-03_2025-03-09.pdf", data)
	if err != nil {
		t.Fatalf("UploadReport() error = %v", err)
	}
	if blobName != "mar-reports/mar_2025-03-03_2025-03-09.pdf" {
		t.Errorf("blobName = %v, want mar-reports/ prefix", blobName)
	}

	downloaded, err := mock.DownloadReport(ctx, blobName)
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}
	if !bytes.Equal(downloaded, data) {
		t.Errorf("downloaded data does not match uploaded data")
	}

	// Mutating the downloaded copy must not corrupt the stored blob
	downloaded[0] = 'X'
	again, err := mock.DownloadReport(ctx, blobName)
	if err != nil {
		t.Fatalf("DownloadReport() error = %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("stored blob was mutated through a downloaded copy")
	}
}

func TestMockBlobStorageClient_DownloadMissing(t *testing.T) {
	mock := NewMockBlobStorageClient(zap.NewNop())

	_, err := mock.DownloadReport(context.Background(), "mar-reports/missing.pdf")
	if err == nil {
		t.Error("DownloadReport() should fail for a missing blob")
	}
}

func TestMockBlobStorageClient_Clear(t *testing.T) {
	mock := NewMockBlobStorageClient(zap.NewNop())
	ctx := context.Background()

	_, err := mock.UploadReport(ctx, "a.pdf", []byte("a"))
	if err != nil {
		t.Fatalf("UploadReport() error = %v", err)
	}
	if len(mock.ListBlobs()) != 1 {
		t.Fatalf("ListBlobs() = %d blobs, want 1", len(mock.ListBlobs()))
	}

	mock.Clear()
	if len(mock.ListBlobs()) != 0 {
		t.Errorf("ListBlobs() after Clear = %d blobs, want 0", len(mock.ListBlobs()))
	}
}

func TestToPtr(t *testing.T) {
	str := "application/pdf"
	ptr := toPtr(str)

	if ptr == nil {
		t.Fatal("toPtr() returned nil")
	}
	if *ptr != str {
		t.Errorf("*toPtr() = %v, want %v", *ptr, str)
	}
}
