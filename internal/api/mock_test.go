package api

import (
	"context"

	"cm-admin/internal/domain"
	"cm-admin/internal/service/auth"
)

// === Mocks ===

type mockAuthService struct {
	loginFn  func(ctx context.Context, username, password, ip string) (*auth.Login, error)
	logoutFn func(ctx context.Context, token string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password, ip string) (*auth.Login, error) {
	if m.loginFn == nil {
		panic("mockAuthService.Login called but not configured")
	}
	return m.loginFn(ctx, username, password, ip)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn == nil {
		panic("mockAuthService.Logout called but not configured")
	}
	return m.logoutFn(ctx, token)
}

type mockUploadService struct {
	uploadFn func(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error)
}

func (m *mockUploadService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	if m.uploadFn == nil {
		panic("mockUploadService.Upload called but not configured")
	}
	return m.uploadFn(ctx, req)
}

type mockDatasetService struct {
	loaderConfFn     func(ctx context.Context) ([]domain.DatasetLoaderConf, error)
	versionRowsFn    func(ctx context.Context, tableName string, versionID int64) (*domain.ResultSet, error)
	updateRowFn      func(ctx context.Context, principal, tableName string, columns []string, values []any, rowID int64) (*domain.ResultSet, error)
	setColumnTitleFn func(ctx context.Context, principal, tableName, column, title string) error
}

func (m *mockDatasetService) LoaderConf(ctx context.Context) ([]domain.DatasetLoaderConf, error) {
	if m.loaderConfFn == nil {
		panic("mockDatasetService.LoaderConf called but not configured")
	}
	return m.loaderConfFn(ctx)
}

func (m *mockDatasetService) VersionRows(ctx context.Context, tableName string, versionID int64) (*domain.ResultSet, error) {
	if m.versionRowsFn == nil {
		panic("mockDatasetService.VersionRows called but not configured")
	}
	return m.versionRowsFn(ctx, tableName, versionID)
}

func (m *mockDatasetService) UpdateRow(ctx context.Context, principal, tableName string, columns []string, values []any, rowID int64) (*domain.ResultSet, error) {
	if m.updateRowFn == nil {
		panic("mockDatasetService.UpdateRow called but not configured")
	}
	return m.updateRowFn(ctx, principal, tableName, columns, values, rowID)
}

func (m *mockDatasetService) SetColumnTitle(ctx context.Context, principal, tableName, column, title string) error {
	if m.setColumnTitleFn == nil {
		panic("mockDatasetService.SetColumnTitle called but not configured")
	}
	return m.setColumnTitleFn(ctx, principal, tableName, column, title)
}

type mockReferenceService struct {
	tablesFn func() []domain.ReferenceTable
	listFn   func(ctx context.Context, key string, page domain.PageRequest) (*domain.ResultSet, error)
	insertFn func(ctx context.Context, principal, key string, values map[string]any) (*domain.ResultSet, error)
	updateFn func(ctx context.Context, principal, key string, id int64, values map[string]any) (*domain.ResultSet, error)
	deleteFn func(ctx context.Context, principal, key string, id int64) (*domain.ResultSet, error)
}

func (m *mockReferenceService) Tables() []domain.ReferenceTable {
	if m.tablesFn == nil {
		panic("mockReferenceService.Tables called but not configured")
	}
	return m.tablesFn()
}

func (m *mockReferenceService) List(ctx context.Context, key string, page domain.PageRequest) (*domain.ResultSet, error) {
	if m.listFn == nil {
		panic("mockReferenceService.List called but not configured")
	}
	return m.listFn(ctx, key, page)
}

func (m *mockReferenceService) Insert(ctx context.Context, principal, key string, values map[string]any) (*domain.ResultSet, error) {
	if m.insertFn == nil {
		panic("mockReferenceService.Insert called but not configured")
	}
	return m.insertFn(ctx, principal, key, values)
}

func (m *mockReferenceService) Update(ctx context.Context, principal, key string, id int64, values map[string]any) (*domain.ResultSet, error) {
	if m.updateFn == nil {
		panic("mockReferenceService.Update called but not configured")
	}
	return m.updateFn(ctx, principal, key, id, values)
}

func (m *mockReferenceService) Delete(ctx context.Context, principal, key string, id int64) (*domain.ResultSet, error) {
	if m.deleteFn == nil {
		panic("mockReferenceService.Delete called but not configured")
	}
	return m.deleteFn(ctx, principal, key, id)
}

type mockReportService struct {
	nbIotFn          func(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	catMFn           func(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	masterListFn     func(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	bapFn            func(ctx context.Context, tcp int) (*domain.ResultSet, error)
	priceZoneListFn  func(ctx context.Context, tcp int) (*domain.ResultSet, error)
	eprofileFn       func(ctx context.Context, profile int) (*domain.ResultSet, error)
	tcpListFn        func(ctx context.Context) (*domain.ResultSet, error)
	pzCutOffPointsFn func(ctx context.Context, tcp int) (*domain.ResultSet, error)
	screenConfigFn   func(ctx context.Context) (*domain.ResultSet, error)
}

func (m *mockReportService) NbIot(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	if m.nbIotFn == nil {
		panic("mockReportService.NbIot called but not configured")
	}
	return m.nbIotFn(ctx, v)
}

func (m *mockReportService) CatM(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	if m.catMFn == nil {
		panic("mockReportService.CatM called but not configured")
	}
	return m.catMFn(ctx, v)
}

func (m *mockReportService) MasterList(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	if m.masterListFn == nil {
		panic("mockReportService.MasterList called but not configured")
	}
	return m.masterListFn(ctx, v)
}

func (m *mockReportService) Bap(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if m.bapFn == nil {
		panic("mockReportService.Bap called but not configured")
	}
	return m.bapFn(ctx, tcp)
}

func (m *mockReportService) PriceZoneList(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if m.priceZoneListFn == nil {
		panic("mockReportService.PriceZoneList called but not configured")
	}
	return m.priceZoneListFn(ctx, tcp)
}

func (m *mockReportService) Eprofile(ctx context.Context, profile int) (*domain.ResultSet, error) {
	if m.eprofileFn == nil {
		panic("mockReportService.Eprofile called but not configured")
	}
	return m.eprofileFn(ctx, profile)
}

func (m *mockReportService) TCPList(ctx context.Context) (*domain.ResultSet, error) {
	if m.tcpListFn == nil {
		panic("mockReportService.TCPList called but not configured")
	}
	return m.tcpListFn(ctx)
}

func (m *mockReportService) PzCutOffPoints(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if m.pzCutOffPointsFn == nil {
		panic("mockReportService.PzCutOffPoints called but not configured")
	}
	return m.pzCutOffPointsFn(ctx, tcp)
}

func (m *mockReportService) ScreenConfig(ctx context.Context) (*domain.ResultSet, error) {
	if m.screenConfigFn == nil {
		panic("mockReportService.ScreenConfig called but not configured")
	}
	return m.screenConfigFn(ctx)
}

type mockMasterService struct {
	savedVersionsFn func(ctx context.Context) (*domain.ResultSet, error)
	savedVersionFn  func(ctx context.Context, id int64) (*domain.SavedMasterVersion, *domain.ResultSet, error)
	saveFn          func(ctx context.Context, principal, name string, v domain.SourceVersions) (*domain.SavedMasterVersion, error)
}

func (m *mockMasterService) SavedVersions(ctx context.Context) (*domain.ResultSet, error) {
	if m.savedVersionsFn == nil {
		panic("mockMasterService.SavedVersions called but not configured")
	}
	return m.savedVersionsFn(ctx)
}

func (m *mockMasterService) SavedVersion(ctx context.Context, id int64) (*domain.SavedMasterVersion, *domain.ResultSet, error) {
	if m.savedVersionFn == nil {
		panic("mockMasterService.SavedVersion called but not configured")
	}
	return m.savedVersionFn(ctx, id)
}

func (m *mockMasterService) Save(ctx context.Context, principal, name string, v domain.SourceVersions) (*domain.SavedMasterVersion, error) {
	if m.saveFn == nil {
		panic("mockMasterService.Save called but not configured")
	}
	return m.saveFn(ctx, principal, name, v)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }
