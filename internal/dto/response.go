package dto

// ── 分页请求 ──

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationRequest 通用分页参数
// page 从 0 开始
type PaginationRequest struct {
	Page int `form:"page" binding:"omitempty,min=0"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page < 0 {
		return 0
	}
	return p.Page
}

// GetSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetSize() int {
	if p.Size <= 0 {
		return defaultPageSize
	}
	if p.Size > maxPageSize {
		return maxPageSize
	}
	return p.Size
}

// Window 计算当前页在 total 条记录中的 [from, to) 区间
// 页码超出范围时返回空区间，先比较再相乘，避免 page*size 溢出
func (p *PaginationRequest) Window(total int) (from, to int) {
	page, size := p.GetPage(), p.GetSize()
	if total <= 0 || page > total/size {
		return total, total
	}
	from = page * size
	return from, min(from+size, total)
}
