package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/status"
)

// tvboxClient speaks the TVBox provide/vod JSON API. The payload shares the
// vod_* vocabulary with CMS sites but lives under a fixed path and always
// answers JSON, with detail records inlined when ac=detail is used.
type tvboxClient struct {
	f *Factory
}

type tvboxResponse struct {
	Code      int         `json:"code"`
	Page      json.Number `json:"page"`
	PageCount json.Number `json:"pagecount"`
	List      []cmsItem   `json:"list"`
}

func (c *tvboxClient) FetchListPage(ctx context.Context, site repo.SourceSite, category string, page int) ([]RawRecord, bool, error) {
	u := fmt.Sprintf("%s/api.php/provide/vod/?ac=detail&pg=%d", strings.TrimSuffix(site.BaseURL, "/"), page)
	if category != "" {
		u += "&t=" + url.QueryEscape(category)
	}

	body, err := c.f.fetch(ctx, site, u, c.f.listTimeout)
	if err != nil {
		return nil, false, err
	}

	var resp tvboxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("%w: %s: decode list: %v", ErrSourceUnavailable, site.Name, err)
	}

	records := make([]RawRecord, 0, len(resp.List))
	for _, item := range resp.List {
		raw := item.toRaw()
		raw.Dialect = status.SourceTVBox
		records = append(records, raw)
	}

	pageCount, _ := resp.PageCount.Int64()
	hasMore := pageCount > 0 && int64(page) < pageCount
	return records, hasMore, nil
}

func (c *tvboxClient) FetchDetail(ctx context.Context, site repo.SourceSite, externalID string) (*RawRecord, error) {
	u := fmt.Sprintf("%s/api.php/provide/vod/?ac=detail&ids=%s", strings.TrimSuffix(site.BaseURL, "/"), url.QueryEscape(externalID))

	body, err := c.f.fetch(ctx, site, u, c.f.detailTimeout)
	if err != nil {
		return nil, err
	}

	var resp tvboxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: decode detail: %v", ErrSourceUnavailable, site.Name, err)
	}
	if len(resp.List) == 0 {
		return nil, fmt.Errorf("detail %s: empty response from %s", externalID, site.Name)
	}

	raw := resp.List[0].toRaw()
	raw.Dialect = status.SourceTVBox
	return &raw, nil
}
