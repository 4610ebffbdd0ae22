package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/port"
)

// ReportService renders the request register as a spreadsheet for offline
// review and record keeping.
type ReportService interface {
	ExportRequests(ctx context.Context, filter port.RequestFilter) ([]byte, error)
}

type reportServiceImpl struct {
	requestRepo port.RequestRepository
	logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(requestRepo port.RequestRepository, logger *zap.Logger) ReportService {
	return &reportServiceImpl{
		requestRepo: requestRepo,
		logger:      logger,
	}
}

var exportHeader = []string{
	"ID", "Type", "Status", "Requester", "Target User",
	"Admin Remark", "Manager Response", "Merge Status", "Created", "Updated",
}

// ExportRequests builds an XLSX register of the requests matching the filter
func (s *reportServiceImpl) ExportRequests(ctx context.Context, filter port.RequestFilter) ([]byte, error) {
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	for i, request := range requests {
		row := []interface{}{
			request.ID,
			request.Type.String(),
			request.Status,
			request.RequesterID,
			request.TargetUserID(),
			request.AdminRemark,
			request.ManagerResponse,
			request.MergeStatus,
			request.CreatedAt.Format("2006-01-02 15:04:05"),
			request.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Request register exported", zap.Int("rows", len(requests)))
	return buf.Bytes(), nil
}
