package upload

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) InitUpload(ctx context.Context, req api.InitUploadRequest) (*api.InitUploadResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*api.InitUploadResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUploader) PutUpload(ctx context.Context, uploadURL, mimeType string, data []byte) error {
	return m.Called(ctx, uploadURL, mimeType, data).Error(0)
}

func (m *MockUploader) CompleteUpload(ctx context.Context, attachmentID string) error {
	return m.Called(ctx, attachmentID).Error(0)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestSessionPhaseOrder(t *testing.T) {
	up := new(MockUploader)
	s := NewSession(up)

	err := s.Transfer(context.Background(), "image/png", pngHeader)
	require.ErrorIs(t, err, domain.ErrPhaseOrder)
	var ue *domain.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, domain.PhaseTransfer, ue.Phase)

	require.ErrorIs(t, s.Complete(context.Background()), domain.ErrPhaseOrder)
	assert.Equal(t, StateNew, s.State())

	up.AssertNotCalled(t, "PutUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	up.AssertNotCalled(t, "CompleteUpload", mock.Anything, mock.Anything)
}

func TestSessionFailedIsTerminal(t *testing.T) {
	up := new(MockUploader)
	up.On("InitUpload", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	s := NewSession(up)
	err := s.Init(context.Background(), api.InitUploadRequest{FileName: "a.png"})

	var ue *domain.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, domain.PhaseInit, ue.Phase)
	assert.Equal(t, StateFailed, s.State())

	require.ErrorIs(t, s.Init(context.Background(), api.InitUploadRequest{}), domain.ErrPhaseOrder)
	up.AssertExpectations(t)
}

func TestPipelineUpload(t *testing.T) {
	up := new(MockUploader)
	up.On("InitUpload", mock.Anything, api.InitUploadRequest{
		FileName: "cat.png",
		MimeType: "image/png",
		Size:     int64(len(pngHeader)),
	}).Return(&api.InitUploadResponse{AttachmentID: "att-1", UploadURL: "http://x/uploads/att-1"}, nil)
	up.On("PutUpload", mock.Anything, "http://x/uploads/att-1", "image/png", pngHeader).Return(nil)
	up.On("CompleteUpload", mock.Anything, "att-1").Return(nil)

	p := NewPipeline(up)
	att, err := p.Upload(context.Background(), File{Name: "cat.png", Data: pngHeader})

	require.NoError(t, err)
	assert.Equal(t, "att-1", att.ID)
	assert.Equal(t, "image/png", att.MimeType)
	up.AssertExpectations(t)
}

func TestPipelineTransferFailureSkipsComplete(t *testing.T) {
	up := new(MockUploader)
	up.On("InitUpload", mock.Anything, mock.Anything).
		Return(&api.InitUploadResponse{AttachmentID: "att-2", UploadURL: "http://x/uploads/att-2"}, nil)
	up.On("PutUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	p := NewPipeline(up)
	_, err := p.Upload(context.Background(), File{Name: "doc.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")})

	var ue *domain.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, domain.PhaseTransfer, ue.Phase)
	assert.Equal(t, "att-2", ue.AttachmentID)
	up.AssertNotCalled(t, "CompleteUpload", mock.Anything, mock.Anything)
}

func TestValidation(t *testing.T) {
	v := NewValidator(16)

	tests := []struct {
		name    string
		file    File
		wantErr error
		mime    string
	}{
		{"too large", File{Name: "big.png", MimeType: "image/png", Data: make([]byte, 17)}, domain.ErrFileTooLarge, ""},
		{"empty", File{Name: "e.txt", MimeType: "text/plain"}, domain.ErrEmptyMessage, ""},
		{"executable", File{Name: "a.exe", MimeType: "application/x-msdownload", Data: []byte("MZ")}, domain.ErrMimeNotAllowed, ""},
		{"svg", File{Name: "logo.svg", MimeType: "image/svg+xml", Data: []byte("<svg/>")}, domain.ErrMimeNotAllowed, ""},
		{"jpeg", File{Name: "p.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}, nil, "image/jpeg"},
		{"webp", File{Name: "p.webp", MimeType: "image/webp", Data: []byte("RIFF")}, nil, "image/webp"},
		{"declared with params", File{Name: "n.txt", MimeType: "text/plain; charset=utf-8", Data: []byte("hi")}, nil, "text/plain"},
		{"sniffed", File{Name: "x", Data: []byte("%PDF-1.4")}, nil, "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.CheckFile(tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mime, got.MimeType)
		})
	}
}

func TestValidationFailureMakesNoRequest(t *testing.T) {
	up := new(MockUploader)
	p := NewPipeline(up, WithMaxSize(4))

	_, err := p.Upload(context.Background(), File{Name: "a.png", MimeType: "image/png", Data: pngHeader})
	require.ErrorIs(t, err, domain.ErrFileTooLarge)
	up.AssertNotCalled(t, "InitUpload", mock.Anything, mock.Anything)
}

func pcmWAV(sampleRate, seconds int) []byte {
	const bitsPerSample, channels = 16, 1
	dataLen := sampleRate * channels * bitsPerSample / 8 * seconds

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	binary.Write(&b, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&b, binary.LittleEndian, uint16(bitsPerSample))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

func TestWAVProber(t *testing.T) {
	got := WAVProber{}.Probe(pcmWAV(8000, 2), "audio/wav")
	assert.InDelta(t, float64(2*time.Second), float64(got), float64(50*time.Millisecond))

	assert.Zero(t, WAVProber{}.Probe([]byte("not audio"), "audio/webm"))
}

func TestUploadVoiceFallsBackToElapsed(t *testing.T) {
	up := new(MockUploader)
	up.On("InitUpload", mock.Anything, mock.MatchedBy(func(r api.InitUploadRequest) bool {
		return r.IsVoice && r.DurationMs == 3000 && r.MimeType == "audio/webm"
	})).Return(&api.InitUploadResponse{AttachmentID: "v-1", UploadURL: "http://x/uploads/v-1"}, nil)
	up.On("PutUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	up.On("CompleteUpload", mock.Anything, "v-1").Return(nil)

	p := NewPipeline(up)
	v, err := p.UploadVoice(context.Background(), Clip{
		Data:     []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00},
		MimeType: "audio/webm",
		Elapsed:  3 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "v-1", v.ID)
	assert.Equal(t, int64(3000), v.DurationMs)
	up.AssertExpectations(t)
}
