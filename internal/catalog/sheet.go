package catalog

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// sheet 课程目录首个工作表的只读视图
type sheet interface {
	// LastRow 最后一行的下标（0 起）
	LastRow() int
	// HasRow 该行是否存在于文件中
	HasRow(i int) bool
	Cell(row, col int) string
}

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// openFirstSheet 按文件头识别 .xls（OLE2）或 .xlsx（ZIP）并打开首个工作表
func openFirstSheet(data []byte) (sheet, error) {
	switch {
	case bytes.HasPrefix(data, oleMagic):
		return openXLS(data)
	case bytes.HasPrefix(data, zipMagic):
		return openXLSX(data)
	default:
		return nil, fmt.Errorf("未知的文件格式")
	}
}

// ── .xls（BIFF8）──

type xlsSheet struct {
	ws *xls.WorkSheet
}

func openXLS(data []byte) (s sheet, err error) {
	// 损坏的 BIFF 记录会在库内部触发 panic
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("读取 xls 失败: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("打开 xls 失败: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("xls 中没有工作表")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("xls 中没有工作表")
	}
	return &xlsSheet{ws: ws}, nil
}

func (s *xlsSheet) LastRow() int { return int(s.ws.MaxRow) }

func (s *xlsSheet) HasRow(i int) bool { return s.row(i) != nil }

func (s *xlsSheet) Cell(row, col int) (v string) {
	r := s.row(row)
	if r == nil || col < 0 || col > r.LastCol() {
		return ""
	}
	defer func() {
		if recover() != nil {
			v = ""
		}
	}()
	return r.Col(col)
}

// row 返回第 i 行，稀疏表中缺失的行返回 nil
// xls.WorkSheet.Row 对缺失行会解引用空指针
func (s *xlsSheet) row(i int) (r *xls.Row) {
	if i < 0 || i > int(s.ws.MaxRow) {
		return nil
	}
	defer func() {
		if recover() != nil {
			r = nil
		}
	}()
	return s.ws.Row(i)
}

// ── .xlsx ──

type xlsxSheet struct {
	rows [][]string
}

func openXLSX(data []byte) (sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开 xlsx 失败: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("xlsx 中没有工作表")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", name, err)
	}
	return &xlsxSheet{rows: rows}, nil
}

func (s *xlsxSheet) LastRow() int { return len(s.rows) - 1 }

// GetRows 会省略末尾空行，但中间的空行以空切片保留
func (s *xlsxSheet) HasRow(i int) bool { return i >= 0 && i < len(s.rows) && len(s.rows[i]) > 0 }

func (s *xlsxSheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.rows) || col >= len(s.rows[row]) {
		return ""
	}
	return s.rows[row][col]
}
