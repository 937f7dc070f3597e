package service

import (
	"context"
	"time"

	"ai-askdata-be/internal/constant"
	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/repository/specification"
	"ai-askdata-be/internal/repository/unitofwork"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/poller"
	"ai-askdata-be/pkg/process"

	"github.com/google/uuid"
)

// FrameEmitter receives one SSE frame; returning an error aborts the stream.
type FrameEmitter func(frame dto.SQLGenerationFrame) error

type IApiService interface {
	RunSQL(ctx context.Context, projectId uuid.UUID, request *dto.RunSQLRequest) (*dto.RunSQLResponse, error)
	GenerateVegaChart(ctx context.Context, projectId uuid.UUID, request *dto.GenerateVegaChartRequest) (*dto.GenerateVegaChartResponse, error)
	GenerateSummary(ctx context.Context, projectId uuid.UUID, request *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error)
	StreamGenerateSQL(ctx context.Context, projectId uuid.UUID, request *dto.GenerateSQLRequest, emit FrameEmitter) error
}

type apiService struct {
	uowFactory unitofwork.RepositoryFactory
	aiClient   *adapter.Client
	logger     logger.ILogger

	pollInterval     time.Duration
	generateDeadline time.Duration
}

func NewApiService(
	uowFactory unitofwork.RepositoryFactory,
	aiClient *adapter.Client,
	log logger.ILogger,
	pollInterval time.Duration,
	generateDeadline time.Duration,
) IApiService {
	return &apiService{
		uowFactory:       uowFactory,
		aiClient:         aiClient,
		logger:           log,
		pollInterval:     pollInterval,
		generateDeadline: generateDeadline,
	}
}

// requireDeployment rejects API calls against projects with no deployed model.
func (s *apiService) requireDeployment(ctx context.Context, projectId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deployment, err := uow.DeploymentRepository().FindLatestDeployed(ctx, specification.ByProjectID{ProjectID: projectId})
	if err != nil {
		return err
	}
	if deployment == nil {
		return serverutils.NewNoDeploymentError()
	}
	return nil
}

func (s *apiService) recordHistory(ctx context.Context, projectId uuid.UUID, threadId *uuid.UUID, apiType string, request, response map[string]interface{}, statusCode int) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record := &entity.ApiHistory{
		Id:              uuid.New(),
		ProjectId:       projectId,
		ThreadId:        threadId,
		ApiType:         apiType,
		RequestPayload:  request,
		ResponsePayload: response,
		StatusCode:      statusCode,
		CreatedAt:       time.Now(),
	}
	if err := uow.ApiHistoryRepository().Create(ctx, record); err != nil {
		// Audit failures never fail the request itself.
		s.logger.Warn("ApiService", "Failed to record api history", map[string]interface{}{
			"api_type": apiType,
			"error":    err.Error(),
		})
	}
}

// resolveThreadId returns the client-provided correlation id or mints one, so
// every api call lands in exactly one history thread.
func resolveThreadId(provided *uuid.UUID) uuid.UUID {
	if provided != nil {
		return *provided
	}
	return uuid.New()
}

func (s *apiService) RunSQL(ctx context.Context, projectId uuid.UUID, request *dto.RunSQLRequest) (*dto.RunSQLResponse, error) {
	if err := s.requireDeployment(ctx, projectId); err != nil {
		return nil, err
	}
	threadId := resolveThreadId(request.ThreadId)

	result, err := s.aiClient.RunSQL(ctx, request.Sql, request.Limit)
	if err != nil {
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeRunSQL,
			map[string]interface{}{"sql": request.Sql, "limit": request.Limit},
			map[string]interface{}{"error": err.Error()}, 500)
		return nil, err
	}

	s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeRunSQL,
		map[string]interface{}{"sql": request.Sql, "limit": request.Limit},
		map[string]interface{}{"total_rows": result.TotalRows}, 200)

	return &dto.RunSQLResponse{
		Records:   result.Records,
		Columns:   result.Columns,
		ThreadId:  threadId,
		TotalRows: result.TotalRows,
	}, nil
}

func (s *apiService) GenerateVegaChart(ctx context.Context, projectId uuid.UUID, request *dto.GenerateVegaChartRequest) (*dto.GenerateVegaChartResponse, error) {
	if err := s.requireDeployment(ctx, projectId); err != nil {
		return nil, err
	}
	threadId := resolveThreadId(request.ThreadId)

	result, err := s.aiClient.GenerateVegaSpec(ctx, request.Question, request.Sql, request.SampleSize)
	if err != nil {
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeGenerateVegaChart,
			map[string]interface{}{"question": request.Question, "sql": request.Sql},
			map[string]interface{}{"error": err.Error()}, 500)
		return nil, err
	}

	s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeGenerateVegaChart,
		map[string]interface{}{"question": request.Question, "sql": request.Sql},
		map[string]interface{}{"vega_spec": result.VegaSpec}, 200)

	return &dto.GenerateVegaChartResponse{
		VegaSpec: result.VegaSpec,
		ThreadId: threadId,
	}, nil
}

func (s *apiService) GenerateSummary(ctx context.Context, projectId uuid.UUID, request *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error) {
	if err := s.requireDeployment(ctx, projectId); err != nil {
		return nil, err
	}
	threadId := resolveThreadId(request.ThreadId)

	result, err := s.aiClient.GenerateSummary(ctx, request.Question, request.Sql)
	if err != nil {
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeGenerateSummary,
			map[string]interface{}{"question": request.Question, "sql": request.Sql},
			map[string]interface{}{"error": err.Error()}, 500)
		return nil, err
	}

	s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeGenerateSummary,
		map[string]interface{}{"question": request.Question, "sql": request.Sql},
		map[string]interface{}{"summary": result.Summary}, 200)

	return &dto.GenerateSummaryResponse{
		Summary:  result.Summary,
		ThreadId: threadId,
	}, nil
}

// stageEvents maps each non-terminal stage to its SSE event name, in process
// order. The strict machine below steps through every intermediate stage even
// when polling skips some, so clients always see the full ladder.
var stageEvents = []struct {
	state process.State
	event string
}{
	{process.StateUnderstanding, constant.SQLGenerationUnderstanding},
	{process.StateSearching, constant.SQLGenerationSearching},
	{process.StatePlanning, constant.SQLGenerationPlanning},
	{process.StateGenerating, constant.SQLGenerationGenerating},
	{process.StateCorrecting, constant.SQLGenerationCorrecting},
}

func stageIndex(s process.State) int {
	for i, st := range stageEvents {
		if st.state == s {
			return i
		}
	}
	return -1
}

// StreamGenerateSQL submits the question and emits one frame per process
// stage until the task ends, closing with a success frame carrying the SQL or
// a failure frame. The whole exchange is bounded by the generation deadline.
func (s *apiService) StreamGenerateSQL(ctx context.Context, projectId uuid.UUID, request *dto.GenerateSQLRequest, emit FrameEmitter) error {
	if err := s.requireDeployment(ctx, projectId); err != nil {
		return err
	}
	threadId := resolveThreadId(request.ThreadId)

	queryId, err := s.aiClient.SubmitAsk(ctx, &adapter.SubmitAskRequest{
		Question: request.Question,
		ThreadId: threadId.String(),
	})
	if err != nil {
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeStreamGenerateSQL,
			map[string]interface{}{"question": request.Question},
			map[string]interface{}{"error": err.Error()}, 500)
		return err
	}

	if err := emit(dto.SQLGenerationFrame{Event: constant.SQLGenerationStart}); err != nil {
		return err
	}

	machine := process.NewMachine(process.Strict, s.logger)
	emitted := -1

	// advanceTo walks the machine through every stage up to target so skipped
	// poll observations still produce their frames.
	advanceTo := func(target process.State) error {
		idx := stageIndex(target)
		if idx < 0 {
			return nil
		}
		for i := emitted + 1; i <= idx; i++ {
			if _, err := machine.TransitionTo(stageEvents[i].state); err != nil {
				return err
			}
			if err := emit(dto.SQLGenerationFrame{Event: stageEvents[i].event}); err != nil {
				return err
			}
		}
		if idx > emitted {
			emitted = idx
		}
		return nil
	}

	var emitErr error
	task, err := poller.PollUntil(ctx,
		func(ctx context.Context) (*adapter.AskingTask, error) {
			return s.aiClient.GetAskResult(ctx, queryId)
		},
		s.pollInterval,
		s.generateDeadline,
		func(task *adapter.AskingTask) bool {
			if task == nil {
				return false
			}
			if task.Status.IsTerminal() {
				return true
			}
			if emitErr == nil {
				emitErr = advanceTo(task.Status)
			}
			return emitErr != nil
		},
	)
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeStreamGenerateSQL,
			map[string]interface{}{"question": request.Question},
			map[string]interface{}{"error": err.Error()}, 500)
		_ = emit(dto.SQLGenerationFrame{Event: constant.SQLGenerationFailed, Error: err.Error()})
		return err
	}

	final := process.Finalize(task.Status, len(task.Candidates))
	switch final {
	case process.StateFinished:
		// Walk out the remaining stages before announcing success.
		if err := advanceTo(process.StateCorrecting); err != nil {
			return err
		}
		if err := emit(dto.SQLGenerationFrame{Event: constant.SQLGenerationFinished}); err != nil {
			return err
		}
		sql := task.Candidates[0].Sql
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeStreamGenerateSQL,
			map[string]interface{}{"question": request.Question},
			map[string]interface{}{"sql": sql}, 200)
		return emit(dto.SQLGenerationFrame{Event: constant.SQLGenerationSuccess, Sql: sql})
	case process.StateStopped:
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeStreamGenerateSQL,
			map[string]interface{}{"question": request.Question},
			map[string]interface{}{"status": string(final)}, 500)
		return emit(dto.SQLGenerationFrame{Event: constant.SQLGenerationStopped})
	default:
		frame := dto.SQLGenerationFrame{Event: constant.SQLGenerationFailed}
		if task.Error != nil {
			frame.Error = task.Error.Message
		} else if final == process.StateNoResult {
			frame.Error = "no sql candidates generated"
		}
		s.recordHistory(ctx, projectId, &threadId, entity.ApiTypeStreamGenerateSQL,
			map[string]interface{}{"question": request.Question},
			map[string]interface{}{"status": string(final), "error": frame.Error}, 500)
		return emit(frame)
	}
}
