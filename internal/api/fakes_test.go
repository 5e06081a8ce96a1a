package api

import (
	"context"
	"errors"

	"github.com/sells-group/diagnostic-versions/internal/config"
	"github.com/sells-group/diagnostic-versions/internal/lifecycle"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

var errUnset = errors.New("fake: not configured")

type fakeLifecycle struct {
	listDiagnostics func(bool) ([]lifecycle.DiagnosticItem, error)
	activeVersions  func(int64, string) ([]lifecycle.ActiveVersionItem, error)
	create          func(lifecycle.CreateInput, int64) (*model.Version, error)
	listVersions    func(int64, string, int) (*lifecycle.VersionList, error)
	detail          func(int64) (*lifecycle.VersionDetail, error)
	prompt          func(int64) (*lifecycle.PromptView, error)
	updatePrompt    func(int64, int64, *string, *string) (*lifecycle.PromptView, error)
	template        func(int64, int64) (*lifecycle.TemplateFile, error)
	finalize        func(int64, int64) (*lifecycle.FinalizeResult, error)
	activate        func(int64, int64, int64) (*lifecycle.ActivateResult, error)
	formHash        func(int64) (string, error)
	form            func(int64) (*lifecycle.Form, error)
}

func (f *fakeLifecycle) ListDiagnostics(_ context.Context, include bool) ([]lifecycle.DiagnosticItem, error) {
	if f.listDiagnostics == nil {
		return nil, errUnset
	}
	return f.listDiagnostics(include)
}

func (f *fakeLifecycle) ActiveVersions(_ context.Context, id int64, code string) ([]lifecycle.ActiveVersionItem, error) {
	if f.activeVersions == nil {
		return nil, errUnset
	}
	return f.activeVersions(id, code)
}

func (f *fakeLifecycle) Create(_ context.Context, in lifecycle.CreateInput, actor int64) (*model.Version, error) {
	if f.create == nil {
		return nil, errUnset
	}
	return f.create(in, actor)
}

func (f *fakeLifecycle) ListVersions(_ context.Context, id int64, status string, limit int) (*lifecycle.VersionList, error) {
	if f.listVersions == nil {
		return nil, errUnset
	}
	return f.listVersions(id, status, limit)
}

func (f *fakeLifecycle) Detail(_ context.Context, id int64) (*lifecycle.VersionDetail, error) {
	if f.detail == nil {
		return nil, errUnset
	}
	return f.detail(id)
}

func (f *fakeLifecycle) Prompt(_ context.Context, id int64) (*lifecycle.PromptView, error) {
	if f.prompt == nil {
		return nil, errUnset
	}
	return f.prompt(id)
}

func (f *fakeLifecycle) UpdatePrompt(_ context.Context, id, actor int64, prompt, note *string) (*lifecycle.PromptView, error) {
	if f.updatePrompt == nil {
		return nil, errUnset
	}
	return f.updatePrompt(id, actor, prompt, note)
}

func (f *fakeLifecycle) Template(_ context.Context, id, diagnosticID int64) (*lifecycle.TemplateFile, error) {
	if f.template == nil {
		return nil, errUnset
	}
	return f.template(id, diagnosticID)
}

func (f *fakeLifecycle) Finalize(_ context.Context, id, actor int64) (*lifecycle.FinalizeResult, error) {
	if f.finalize == nil {
		return nil, errUnset
	}
	return f.finalize(id, actor)
}

func (f *fakeLifecycle) Activate(_ context.Context, id, actor, diagnosticID int64) (*lifecycle.ActivateResult, error) {
	if f.activate == nil {
		return nil, errUnset
	}
	return f.activate(id, actor, diagnosticID)
}

func (f *fakeLifecycle) FormHash(_ context.Context, id int64) (string, error) {
	if f.formHash == nil {
		return "", errUnset
	}
	return f.formHash(id)
}

func (f *fakeLifecycle) Form(_ context.Context, id int64) (*lifecycle.Form, error) {
	if f.form == nil {
		return nil, errUnset
	}
	return f.form(id)
}

type fakeImporter struct {
	content []byte
	actor   int64
	sum     *model.ImportSummary
	err     error
}

func (f *fakeImporter) ImportContent(_ context.Context, versionID, actorID int64, content []byte) (*model.ImportSummary, error) {
	f.content, f.actor = content, actorID
	if f.err != nil {
		return nil, f.err
	}
	s := *f.sum
	s.VersionID = versionID
	return &s, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func testConfig() config.Config {
	var cfg config.Config
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.ImportRatePerMinute = 30
	cfg.Server.MaxUploadBytes = 1 << 20
	cfg.Form.CacheControl = "public, max-age=300"
	return cfg
}
