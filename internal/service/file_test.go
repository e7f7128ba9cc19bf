package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ideafiles/internal/model"
	ownerMocks "ideafiles/internal/ownership/mocks"
	"ideafiles/internal/repository"
	repoMocks "ideafiles/internal/repository/mocks"
	"ideafiles/internal/storage"
	storeMocks "ideafiles/internal/storage/mocks"
)

const testBucket = "idea-files"

type fixture struct {
	owners   *ownerMocks.MockValidator
	txm      *repoMocks.MockTxManager
	tx       *repoMocks.MockTx
	poolRepo *repoMocks.MockFileRepository
	txRepo   *repoMocks.MockFileRepository
	store    *storeMocks.MockStorage
	metrics  *Metrics
	svc      FileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		owners:   new(ownerMocks.MockValidator),
		poolRepo: new(repoMocks.MockFileRepository),
		txRepo:   new(repoMocks.MockFileRepository),
		store:    new(storeMocks.MockStorage),
		metrics:  metrics,
	}
	f.txm = &repoMocks.MockTxManager{Repo: f.poolRepo}
	f.tx = &repoMocks.MockTx{Repo: f.txRepo}
	f.svc = NewFileService(f.store, f.txm, f.owners, testBucket, WithMetrics(metrics))
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.owners.AssertExpectations(t)
	f.txm.AssertExpectations(t)
	f.tx.AssertExpectations(t)
	f.poolRepo.AssertExpectations(t)
	f.txRepo.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func (f *fixture) compensations(op string) float64 {
	return testutil.ToFloat64(f.metrics.compensations.WithLabelValues(op))
}

func TestFileService_AddFile(t *testing.T) {
	content := strings.NewReader("hello world")
	upload := FileUpload{FileName: "pitch.pdf", ContentType: "application/pdf", Size: 11, Content: content}
	created := &model.FileRecord{ID: 7, IdeaID: 10, FileName: "pitch.pdf", ContentType: "application/pdf", FileSize: 11}
	wantPut := storage.PutObjectOptions{
		Size:        11,
		ContentType: "application/pdf",
		Metadata:    map[string]string{"idea-id": "10", "file-id": "7"},
	}

	tests := []struct {
		name              string
		ideaID            int64
		upload            FileUpload
		credential        string
		setup             func(f *fixture)
		wantErr           error
		wantErrMsg        string
		wantCompensations float64
	}{
		{
			name:       "happy path",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.FileRecord) bool {
					return r.ID == 0 && r.IdeaID == 10 && r.FileName == "pitch.pdf" && r.FileSize == 11
				})).Return(created, nil)
				f.store.On("Put", mock.Anything, testBucket, "10/7", content, wantPut).
					Return(storage.ObjectInfo{Bucket: testBucket, Key: "10/7", Size: 11}, nil)
				f.tx.On("Commit").Return(nil)
			},
		},
		{
			name:       "missing credential is denied before anything else",
			ideaID:     10,
			upload:     upload,
			credential: "",
			setup:      func(f *fixture) {},
			wantErr:    ErrOwnershipDenied,
		},
		{
			name:       "missing idea id",
			ideaID:     0,
			upload:     upload,
			credential: "tok",
			setup:      func(f *fixture) {},
			wantErr:    ErrInvalidRequest,
		},
		{
			name:       "caller is not the owner",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(false, nil)
			},
			wantErr: ErrOwnershipDenied,
		},
		{
			name:       "ownership service unavailable",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(false, errors.New("connection refused"))
			},
			wantErr: ErrOwnershipCheckFailed,
		},
		{
			name:       "empty file name",
			ideaID:     10,
			upload:     FileUpload{FileName: "", Size: 1, Content: strings.NewReader("x")},
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
			},
			wantErr: ErrInvalidRequest,
		},
		{
			name:       "begin fails",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(nil, errors.New("pool exhausted"))
			},
			wantErrMsg: "begin metadata transaction: pool exhausted",
		},
		{
			name:       "insert fails and is rolled back",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				f.tx.On("Rollback").Return(nil)
			},
			wantErrMsg:        "insert file metadata: db fail",
			wantCompensations: 1,
		},
		{
			name:       "put fails and metadata is rolled back",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Create", mock.Anything, mock.Anything).Return(created, nil)
				f.store.On("Put", mock.Anything, testBucket, "10/7", content, wantPut).
					Return(storage.ObjectInfo{}, errors.New("bucket unreachable"))
				f.tx.On("Rollback").Return(nil)
			},
			wantErr:           ErrStorageOperationFailed,
			wantCompensations: 1,
		},
		{
			name:       "commit fails and the written object is removed",
			ideaID:     10,
			upload:     upload,
			credential: "tok",
			setup: func(f *fixture) {
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Create", mock.Anything, mock.Anything).Return(created, nil)
				f.store.On("Put", mock.Anything, testBucket, "10/7", content, wantPut).
					Return(storage.ObjectInfo{Key: "10/7"}, nil)
				f.tx.On("Commit").Return(errors.New("connection reset"))
				f.store.On("Delete", mock.Anything, testBucket, "10/7").Return(nil)
			},
			wantErrMsg:        "commit file metadata: connection reset",
			wantCompensations: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			rec, err := f.svc.AddFile(context.Background(), tt.ideaID, tt.upload, tt.credential)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, rec)
			default:
				require.NoError(t, err)
				assert.Equal(t, created, rec)
			}
			assert.Equal(t, tt.wantCompensations, f.compensations(opAdd))
			f.assertExpectations(t)
		})
	}
}

func TestFileService_AddFile_DefaultContentType(t *testing.T) {
	f := newFixture(t)
	content := strings.NewReader("abc")

	f.owners.On("IsOwner", mock.Anything, int64(3), "tok").Return(true, nil)
	f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
	f.txRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.FileRecord) bool {
		return r.ContentType == defaultContentType
	})).Return(&model.FileRecord{ID: 1, IdeaID: 3, FileName: "notes", ContentType: defaultContentType, FileSize: 3}, nil)
	f.store.On("Put", mock.Anything, testBucket, "3/1", content, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
		return o.ContentType == defaultContentType && o.Size == 3
	})).Return(storage.ObjectInfo{Key: "3/1"}, nil)
	f.tx.On("Commit").Return(nil)

	rec, err := f.svc.AddFile(context.Background(), 3, FileUpload{FileName: "notes", Size: 3, Content: content}, "tok")
	require.NoError(t, err)
	assert.Equal(t, defaultContentType, rec.ContentType)
	f.assertExpectations(t)
}

func TestFileService_GetFileListByIdeaID(t *testing.T) {
	tests := []struct {
		name    string
		ideaID  int64
		setup   func(f *fixture)
		want    []model.FileRecord
		wantErr bool
	}{
		{
			name:   "files of the idea",
			ideaID: 10,
			setup: func(f *fixture) {
				f.poolRepo.On("ListByIdeaID", mock.Anything, int64(10)).
					Return([]model.FileRecord{{ID: 1, IdeaID: 10}, {ID: 2, IdeaID: 10}}, nil)
			},
			want: []model.FileRecord{{ID: 1, IdeaID: 10}, {ID: 2, IdeaID: 10}},
		},
		{
			name:   "unknown idea yields empty slice",
			ideaID: 99,
			setup: func(f *fixture) {
				f.poolRepo.On("ListByIdeaID", mock.Anything, int64(99)).Return(nil, nil)
			},
			want: []model.FileRecord{},
		},
		{
			name:   "missing idea id never reaches the store",
			ideaID: 0,
			setup:  func(f *fixture) {},
			want:   []model.FileRecord{},
		},
		{
			name:   "repository error",
			ideaID: 10,
			setup: func(f *fixture) {
				f.poolRepo.On("ListByIdeaID", mock.Anything, int64(10)).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			got, err := f.svc.GetFileListByIdeaID(context.Background(), tt.ideaID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			f.assertExpectations(t)
		})
	}
}

func TestFileService_GetByFileID(t *testing.T) {
	rec := &model.FileRecord{ID: 7, IdeaID: 10, FileName: "a.txt", FileSize: 3}

	t.Run("found", func(t *testing.T) {
		f := newFixture(t)
		f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)

		got, ok, err := f.svc.GetByFileID(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, rec, got)
		f.assertExpectations(t)
	})

	t.Run("absent is not an error", func(t *testing.T) {
		f := newFixture(t)
		f.poolRepo.On("FindByID", mock.Anything, int64(8)).Return(nil, repository.ErrNotFound)

		got, ok, err := f.svc.GetByFileID(context.Background(), 8)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture(t)
		f.poolRepo.On("FindByID", mock.Anything, int64(9)).Return(nil, errors.New("db fail"))

		_, ok, err := f.svc.GetByFileID(context.Background(), 9)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestFileService_GetFileWithBodyByID(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantErrs []error
		wantBody []byte
	}{
		{
			name: "body is attached",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).
					Return(&model.FileRecord{ID: 7, IdeaID: 10, FileSize: 3}, nil)
				f.store.On("Get", mock.Anything, testBucket, "10/7", int64(3)).Return([]byte("abc"), nil)
			},
			wantBody: []byte("abc"),
		},
		{
			name: "metadata miss",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)
			},
			wantErrs: []error{ErrFileNotFound},
		},
		{
			name: "size mismatch is surfaced",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).
					Return(&model.FileRecord{ID: 7, IdeaID: 10, FileSize: 5}, nil)
				f.store.On("Get", mock.Anything, testBucket, "10/7", int64(5)).
					Return(nil, fmt.Errorf("%w: expected 5 bytes, got 3", storage.ErrSizeMismatch))
			},
			wantErrs: []error{ErrStorageOperationFailed, storage.ErrSizeMismatch},
		},
		{
			name: "object missing behind metadata",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).
					Return(&model.FileRecord{ID: 7, IdeaID: 10, FileSize: 3}, nil)
				f.store.On("Get", mock.Anything, testBucket, "10/7", int64(3)).Return(nil, storage.ErrObjectNotFound)
			},
			wantErrs: []error{ErrStorageOperationFailed, storage.ErrObjectNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			rec, err := f.svc.GetFileWithBodyByID(context.Background(), 7)
			if len(tt.wantErrs) > 0 {
				for _, want := range tt.wantErrs {
					assert.ErrorIs(t, err, want)
				}
				assert.Nil(t, rec)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, rec.Body)
			}
			f.assertExpectations(t)
		})
	}
}

func TestFileService_RemoveFile(t *testing.T) {
	rec := &model.FileRecord{ID: 7, IdeaID: 10, FileName: "a.txt", FileSize: 3}

	tests := []struct {
		name              string
		credential        string
		setup             func(f *fixture)
		wantErr           error
		wantErrMsg        string
		wantCompensations float64
	}{
		{
			name:       "happy path",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Delete", mock.Anything, int64(7)).Return(rec, nil)
				f.store.On("Delete", mock.Anything, testBucket, "10/7").Return(nil)
				f.tx.On("Commit").Return(nil)
			},
		},
		{
			name:       "unknown file",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrFileNotFound,
		},
		{
			name:       "missing credential",
			credential: "",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
			},
			wantErr: ErrOwnershipDenied,
		},
		{
			name:       "caller is not the owner",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(false, nil)
			},
			wantErr: ErrOwnershipDenied,
		},
		{
			name:       "ownership service unavailable",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(false, errors.New("timeout"))
			},
			wantErr: ErrOwnershipCheckFailed,
		},
		{
			name:       "concurrent remove already won",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Delete", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)
				f.tx.On("Rollback").Return(nil)
			},
			wantErr: ErrFileNotFound,
		},
		{
			name:       "object already absent is a quiet delete",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Delete", mock.Anything, int64(7)).Return(rec, nil)
				f.store.On("Delete", mock.Anything, testBucket, "10/7").
					Return(fmt.Errorf("stat object: %w", storage.ErrObjectNotFound))
				f.tx.On("Commit").Return(nil)
			},
		},
		{
			name:       "object delete fails and metadata is restored",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Delete", mock.Anything, int64(7)).Return(rec, nil)
				f.store.On("Delete", mock.Anything, testBucket, "10/7").Return(errors.New("access denied"))
				f.tx.On("Rollback").Return(nil)
			},
			wantErr:           ErrStorageOperationFailed,
			wantCompensations: 1,
		},
		{
			name:       "commit fails",
			credential: "tok",
			setup: func(f *fixture) {
				f.poolRepo.On("FindByID", mock.Anything, int64(7)).Return(rec, nil)
				f.owners.On("IsOwner", mock.Anything, int64(10), "tok").Return(true, nil)
				f.txm.On("Begin", mock.Anything).Return(f.tx, nil)
				f.txRepo.On("Delete", mock.Anything, int64(7)).Return(rec, nil)
				f.store.On("Delete", mock.Anything, testBucket, "10/7").Return(nil)
				f.tx.On("Commit").Return(errors.New("connection reset"))
			},
			wantErrMsg: "commit file deletion: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			err := f.svc.RemoveFile(context.Background(), 7, tt.credential)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCompensations, f.compensations(opRemove))
			f.assertExpectations(t)
		})
	}
}

func TestFileService_OperationMetrics(t *testing.T) {
	f := newFixture(t)
	f.poolRepo.On("FindByID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound)
	f.poolRepo.On("FindByID", mock.Anything, int64(2)).Return(&model.FileRecord{ID: 2, IdeaID: 4}, nil)

	_, _, _ = f.svc.GetByFileID(context.Background(), 1)
	_, _, _ = f.svc.GetByFileID(context.Background(), 2)
	_ = f.svc.RemoveFile(context.Background(), 1, "tok")

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.operations.WithLabelValues(opGet, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.operations.WithLabelValues(opRemove, "file_not_found")))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "success", ErrorKind(nil))
	assert.Equal(t, "invalid_request", ErrorKind(fmt.Errorf("%w: x", ErrInvalidRequest)))
	assert.Equal(t, "ownership_denied", ErrorKind(ErrOwnershipDenied))
	assert.Equal(t, "ownership_check_failed", ErrorKind(ErrOwnershipCheckFailed))
	assert.Equal(t, "file_not_found", ErrorKind(ErrFileNotFound))
	assert.Equal(t, "storage_operation_failed", ErrorKind(fmt.Errorf("%w: %w", ErrStorageOperationFailed, storage.ErrSizeMismatch)))
	assert.Equal(t, "error", ErrorKind(errors.New("boom")))
}
