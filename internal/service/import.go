package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"franchise-crm/internal/domain"
)

type ImportRowError struct {
	Row   int    `json:"row"` // 表格中的行号，从 1 开始，含表头
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Failed   []ImportRowError `json:"failed"`
}

// 表头按名称匹配，大小写和顺序不限
var importColumns = []string{"full_name", "email", "phone", "location", "source_channel"}

type ImportService struct {
	leads *LeadService
	log   *zap.Logger
}

func NewImportService(leads *LeadService, l *zap.Logger) *ImportService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ImportService{leads: leads, log: l.Named("import")}
}

// Import 读取第一个工作表；单行校验失败只记录，不中断整个导入
func (s *ImportService) Import(ctx context.Context, caller domain.Caller, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Validationf("invalid xlsx file: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, domain.Validation("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.Validationf("read worksheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, domain.Validation("worksheet is empty")
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range importColumns[:2] {
		if _, ok := idx[col]; !ok {
			return nil, domain.Validationf("missing column %q", col)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	res := &ImportResult{Failed: []ImportRowError{}}
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in := CreateLeadInput{
			FullName:      cell(row, "full_name"),
			Email:         cell(row, "email"),
			Phone:         cell(row, "phone"),
			Location:      cell(row, "location"),
			SourceChannel: strings.ToLower(cell(row, "source_channel")),
		}
		if _, err := s.leads.Create(ctx, caller, in); err != nil {
			if !domain.IsKind(err, domain.KindValidation) {
				return res, err
			}
			res.Failed = append(res.Failed, ImportRowError{Row: n + 2, Error: domain.Message(err)})
			continue
		}
		res.Imported++
	}
	s.log.Info("lead import finished", zap.Int("imported", res.Imported), zap.Int("failed", len(res.Failed)))
	return res, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ImportTemplate 生成带表头的空模板
func ImportTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, h := range importColumns {
		name, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, name, h); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
