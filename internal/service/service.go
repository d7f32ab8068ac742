package service

import (
	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Lecture   LectureService
	Timetable TimetableService
	Catalog   CatalogService
	Export    ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	fetcher CatalogFetcher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Lecture:   NewLectureService(repo, logger),
		Timetable: NewTimetableService(repo, logger),
		Catalog:   NewCatalogService(&cfg.Catalog, repo, fetcher, logger),
		Export:    NewExportService(&cfg.Export, repo, logger),
	}
}
