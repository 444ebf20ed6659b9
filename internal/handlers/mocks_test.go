package handlers

import (
	"context"
	"io"

	"auscultify/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, req models.ProfileUpdateRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteAccount(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockUserService) EnsureAdmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) ResetPassword(ctx context.Context, email, newPassword string) error {
	args := m.Called(ctx, email, newPassword)
	return args.Error(0)
}

// MockCategoryService is a mock implementation of CategoryServiceInterface
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryService) DeleteCategory(ctx context.Context, req models.DeleteCategoryRequest) (*models.CategoryDeletion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategoryDeletion), args.Error(1)
}

// MockQuestionService is a mock implementation of QuestionServiceInterface.
// CreateQuestion drains the audio reader into Received so tests can inspect the upload.
type MockQuestionService struct {
	mock.Mock
	Received []byte
}

func (m *MockQuestionService) CreateQuestion(ctx context.Context, q models.NewQuestion, audio io.Reader) (*models.QuestionRef, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, err
	}
	m.Received = data
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionRef), args.Error(1)
}

func (m *MockQuestionService) ListQuestions(ctx context.Context, category, baseURL string) ([]models.QuestionListItem, error) {
	args := m.Called(ctx, category, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuestionListItem), args.Error(1)
}

func (m *MockQuestionService) DeleteQuestion(ctx context.Context, id int) (*models.QuestionDeletion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionDeletion), args.Error(1)
}

// MockSelectionService is a mock implementation of SelectionServiceInterface
type MockSelectionService struct {
	mock.Mock
}

func (m *MockSelectionService) Select(ctx context.Context, strategy models.Strategy, req models.SelectionRequest) (*models.SelectionResult, error) {
	args := m.Called(ctx, strategy, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SelectionResult), args.Error(1)
}

func (m *MockSelectionService) ListCriteria(ctx context.Context) ([]models.Criterion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Criterion), args.Error(1)
}

// MockStatisticsService is a mock implementation of StatisticsServiceInterface
type MockStatisticsService struct {
	mock.Mock
}

func (m *MockStatisticsService) RecordSession(ctx context.Context, req models.SessionRequest) (*models.SessionOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionOutcome), args.Error(1)
}

func (m *MockStatisticsService) GetStatistics(ctx context.Context, userID int) (*models.UserStatistics, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStatistics), args.Error(1)
}

func (m *MockStatisticsService) GetUserSummaryByEmail(ctx context.Context, email string) (*models.UserSummary, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSummary), args.Error(1)
}

// MockSocialService is a mock implementation of SocialServiceInterface
type MockSocialService struct {
	mock.Mock
}

func (m *MockSocialService) Follow(ctx context.Context, followerEmail, followedEmail string) error {
	args := m.Called(ctx, followerEmail, followedEmail)
	return args.Error(0)
}

func (m *MockSocialService) Unfollow(ctx context.Context, followerEmail, followedEmail string) error {
	args := m.Called(ctx, followerEmail, followedEmail)
	return args.Error(0)
}

func (m *MockSocialService) ListFollowing(ctx context.Context, email string) ([]models.FollowedUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FollowedUser), args.Error(1)
}

func (m *MockSocialService) ListPublicUsers(ctx context.Context, search, excluding string) ([]models.PublicUser, error) {
	args := m.Called(ctx, search, excluding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PublicUser), args.Error(1)
}
