package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/model"
)

// 课程目录检索表单中的全部字段，未覆盖的字段以空值提交
var searchFormFields = []string{
	"workType", "pageNo", "srchOpenSchyy", "srchOpenShtm", "srchSbjtNm", "srchSbjtCd",
	"seeMore", "srchCptnCorsFg", "srchOpenShyr", "srchOpenUpSbjtFldCd", "srchOpenSbjtFldCd",
	"srchOpenUpDeptCd", "srchOpenDeptCd", "srchOpenMjCd", "srchOpenSubmattCorsFg", "srchExcept",
	"srchOpenPntMin", "srchOpenPntMax", "srchCamp", "srchBdNo", "srchProfNm",
	"srchOpenSbjtTmNm", "srchOpenSbjtDayNm", "srchOpenSbjtTm", "srchOpenSbjtNm",
	"srchTlsnAplyCapaCntMin", "srchTlsnAplyCapaCntMax", "srchLsnProgType",
	"srchTlsnRcntMin", "srchTlsnRcntMax", "srchMrksGvMthd", "srchIsEngSbjt",
	"srchMrksApprMthdChgPosbYn", "srchIsPendingCourse", "srchGenrlRemoteLtYn",
	"srchLanguage", "srchCurrPage", "srchPageSize",
}

// 学期在检索表单中的编码
var semesterFormCodes = map[model.Semester]string{
	model.SemesterSpring: "U000200001U000300001",
	model.SemesterSummer: "U000200001U000300002",
	model.SemesterAutumn: "U000200002U000300001",
	model.SemesterWinter: "U000200002U000300002",
}

const readChunkSize = 32 << 10

// Fetcher 课程目录抓取器
type Fetcher struct {
	client   *http.Client
	endpoint string
	cfg      *config.CatalogConfig
	logger   *zap.Logger
}

// NewFetcher 创建抓取器；client 为 nil 时使用带超时的默认客户端
func NewFetcher(cfg *config.CatalogConfig, client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + cfg.ExcelPath,
		cfg:      cfg,
		logger:   logger,
	}
}

// BuildForm 生成指定学年学期的检索表单
func BuildForm(year int, semester model.Semester) (url.Values, error) {
	code, ok := semesterFormCodes[semester]
	if !ok {
		return nil, fmt.Errorf("未知学期: %v", semester)
	}

	form := make(url.Values, len(searchFormFields))
	for _, f := range searchFormFields {
		form.Set(f, "")
	}
	form.Set("workType", "EX")
	form.Set("pageNo", "1")
	form.Set("srchOpenSchyy", strconv.Itoa(year))
	form.Set("srchOpenShtm", code)
	form.Set("srchLanguage", "ko")
	form.Set("srchCurrPage", "1")
	form.Set("srchPageSize", "9999")
	return form, nil
}

// Fetch 下载指定学年学期的课程目录 Excel，返回完整响应体
// 网络错误、非 2xx 状态或空响应体均返回 FETCH_TRANSPORT 错误，不做重试
func (f *Fetcher) Fetch(ctx context.Context, year int, semester model.Semester) ([]byte, error) {
	form, err := BuildForm(year, semester)
	if err != nil {
		return nil, transportError("构建检索表单失败", err)
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, transportError("创建请求失败", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if f.cfg.Referer != "" {
		req.Header.Set("Referer", f.cfg.Referer)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transportError("请求课程目录失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError("请求课程目录失败", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, transportError("课程目录响应为空", nil)
	}

	f.logger.Info("课程目录下载完成",
		zap.Int("year", year),
		zap.String("semester", semester.String()),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

// readBody 按到达顺序逐块拼接响应体，超过上限即失败
func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	limit := f.cfg.MaxBodyBytes
	var body []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if limit > 0 && int64(len(body)+n) > limit {
				return nil, transportError(fmt.Sprintf("课程目录超过 %d 字节上限", limit), nil)
			}
			body = append(body, chunk[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return body, nil
		}
		if err != nil {
			return nil, transportError("读取课程目录失败", err)
		}
	}
}
