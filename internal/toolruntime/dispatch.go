package toolruntime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// Runtime dispatches a tool call to its kind-specific handler, enforces
// permissions, times execution, and normalizes the outcome into a
// store.ToolExecution record (§4.7, §3 Tool Execution).
type Runtime struct {
	code        *Registry
	permissions *PermissionEngine
	executions  store.ToolExecutionStore

	sqlOpen    SQLOpener
	restClient *http.Client
	emailSend  func(params map[string]any) EmailSender
}

// NewRuntime builds a Runtime. sqlOpen/restClient/emailSend may be nil to
// use the defaults (DefaultSQLOpener, NewRESTClient, NewSMTPSender).
func NewRuntime(code *Registry, executions store.ToolExecutionStore, sqlOpen SQLOpener, restClient *http.Client, emailSend func(map[string]any) EmailSender) *Runtime {
	if sqlOpen == nil {
		sqlOpen = DefaultSQLOpener
	}
	if restClient == nil {
		restClient = NewRESTClient()
	}
	if emailSend == nil {
		emailSend = NewSMTPSender
	}
	return &Runtime{
		code:        code,
		permissions: NewPermissionEngine(),
		executions:  executions,
		sqlOpen:     sqlOpen,
		restClient:  restClient,
		emailSend:   emailSend,
	}
}

// Invoke runs def against args on behalf of channelType, records a
// ToolExecution row keyed to messageID, and returns the dispatch Result.
func (r *Runtime) Invoke(ctx context.Context, def *store.ToolDefinition, channelType string, messageID uuid.UUID, args map[string]any) (*Result, error) {
	if !def.Active {
		return nil, errkind.Wrap(errkind.KindNotFound, "toolruntime.invoke", fmt.Sprintf("tool %q is not active", def.Name))
	}
	if err := r.permissions.Check(def, channelType); err != nil {
		return nil, err
	}

	start := time.Now()
	res := r.dispatch(ctx, def, args)
	elapsed := time.Since(start)

	status := store.ToolExecSuccess
	errMsg := ""
	if res.IsError {
		status = store.ToolExecError
		errMsg = res.ForLLM
	}
	if ctx.Err() != nil {
		status = store.ToolExecTimeout
		errMsg = ctx.Err().Error()
	}

	if r.executions != nil {
		exec := &store.ToolExecution{
			ID:              uuid.New(),
			MessageID:       messageID,
			ToolName:        def.Name,
			Parameters:      args,
			Result:          res.ForLLM,
			ExecutionTimeMS: elapsed.Milliseconds(),
			Status:          store.NormalizeToolStatus(string(status)),
			Error:           errMsg,
			CreatedAt:       start.UTC(),
		}
		if err := r.executions.Insert(ctx, exec); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (r *Runtime) dispatch(ctx context.Context, def *store.ToolDefinition, args map[string]any) *Result {
	switch def.ImplKind {
	case store.ToolImplCode:
		h, ok := r.code.Get(def.Name)
		if !ok {
			return ErrorResult(fmt.Sprintf("no code handler registered for %q", def.Name))
		}
		return h.Execute(ctx, args)
	case store.ToolImplEmail:
		return executeEmail(ctx, def, r.emailSend(def.ImplParams), args)
	case store.ToolImplSQL:
		return executeSQL(ctx, def, r.sqlOpen, args)
	case store.ToolImplREST:
		return executeREST(ctx, def, r.restClient, args)
	default:
		return ErrorResult(fmt.Sprintf("unknown tool kind %q", def.ImplKind))
	}
}
