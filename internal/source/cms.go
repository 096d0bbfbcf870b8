package source

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/status"
)

// cmsClient speaks the maccms-style videolist API. Most sites answer JSON;
// older installs answer the rss/list XML shape, detected from the body.
type cmsClient struct {
	f *Factory
}

type cmsItem struct {
	VodID       json.Number `json:"vod_id"`
	VodName     string      `json:"vod_name"`
	VodYear     string      `json:"vod_year"`
	VodArea     string      `json:"vod_area"`
	VodLang     string      `json:"vod_lang"`
	VodActor    string      `json:"vod_actor"`
	VodDirector string      `json:"vod_director"`
	VodWriter   string      `json:"vod_writer"`
	VodContent  string      `json:"vod_content"`
	VodBlurb    string      `json:"vod_blurb"`
	VodClass    string      `json:"vod_class"`
	VodRemarks  string      `json:"vod_remarks"`
	VodPic      string      `json:"vod_pic"`
	VodPlayFrom string      `json:"vod_play_from"`
	VodPlayURL  string      `json:"vod_play_url"`
	TypeID      json.Number `json:"type_id"`
	TypeName    string      `json:"type_name"`
}

type cmsListResponse struct {
	Code      int         `json:"code"`
	Page      json.Number `json:"page"`
	PageCount json.Number `json:"pagecount"`
	List      []cmsItem   `json:"list"`
}

type cmsXMLVideo struct {
	ID       string `xml:"id"`
	TID      string `xml:"tid"`
	Name     string `xml:"name"`
	Type     string `xml:"type"`
	Pic      string `xml:"pic"`
	Lang     string `xml:"lang"`
	Area     string `xml:"area"`
	Year     string `xml:"year"`
	Note     string `xml:"note"`
	Actor    string `xml:"actor"`
	Director string `xml:"director"`
	Des      string `xml:"des"`
	DD       []struct {
		Flag string `xml:"flag,attr"`
		Body string `xml:",chardata"`
	} `xml:"dl>dd"`
}

type cmsXMLResponse struct {
	XMLName xml.Name `xml:"rss"`
	List    struct {
		Page      string        `xml:"page,attr"`
		PageCount string        `xml:"pagecount,attr"`
		Videos    []cmsXMLVideo `xml:"video"`
	} `xml:"list"`
}

func (c *cmsClient) FetchListPage(ctx context.Context, site repo.SourceSite, category string, page int) ([]RawRecord, bool, error) {
	u := listURL(site.BaseURL, category, page)

	body, err := c.f.fetch(ctx, site, u, c.f.listTimeout)
	if err != nil {
		return nil, false, err
	}

	return c.parseList(site, page, body)
}

func (c *cmsClient) FetchDetail(ctx context.Context, site repo.SourceSite, externalID string) (*RawRecord, error) {
	u := fmt.Sprintf("%s?ac=videolist&ids=%s", strings.TrimSuffix(site.BaseURL, "/"), url.QueryEscape(externalID))

	body, err := c.f.fetch(ctx, site, u, c.f.detailTimeout)
	if err != nil {
		return nil, err
	}

	records, _, err := c.parseList(site, 1, body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("detail %s: empty response from %s", externalID, site.Name)
	}
	return &records[0], nil
}

func (c *cmsClient) parseList(site repo.SourceSite, page int, body []byte) ([]RawRecord, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return parseCMSXML(trimmed)
	}

	var resp cmsListResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, false, fmt.Errorf("%w: %s: decode list: %v", ErrSourceUnavailable, site.Name, err)
	}

	records := make([]RawRecord, 0, len(resp.List))
	for _, item := range resp.List {
		records = append(records, item.toRaw())
	}

	pageCount, _ := resp.PageCount.Int64()
	hasMore := pageCount > 0 && int64(page) < pageCount
	return records, hasMore, nil
}

func parseCMSXML(body []byte) ([]RawRecord, bool, error) {
	var resp cmsXMLResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("decode xml list: %w", err)
	}

	records := make([]RawRecord, 0, len(resp.List.Videos))
	for _, v := range resp.List.Videos {
		var froms, urls []string
		for _, dd := range v.DD {
			froms = append(froms, dd.Flag)
			urls = append(urls, strings.TrimSpace(dd.Body))
		}

		records = append(records, RawRecord{
			Dialect: status.SourceCMS,
			Fields: map[string]string{
				"vod_id":        v.ID,
				"vod_name":      v.Name,
				"vod_year":      v.Year,
				"vod_area":      v.Area,
				"vod_lang":      v.Lang,
				"vod_actor":     v.Actor,
				"vod_director":  v.Director,
				"vod_content":   v.Des,
				"vod_class":     v.Type,
				"vod_remarks":   v.Note,
				"vod_pic":       v.Pic,
				"vod_play_from": strings.Join(froms, "$$$"),
				"vod_play_url":  strings.Join(urls, "$$$"),
				"type_id":       v.TID,
				"type_name":     v.Type,
			},
		})
	}

	page, _ := strconv.Atoi(resp.List.Page)
	pageCount, _ := strconv.Atoi(resp.List.PageCount)
	hasMore := pageCount > 0 && page < pageCount
	return records, hasMore, nil
}

func (i cmsItem) toRaw() RawRecord {
	synopsis := i.VodContent
	if synopsis == "" {
		synopsis = i.VodBlurb
	}

	return RawRecord{
		Dialect: status.SourceCMS,
		Fields: map[string]string{
			"vod_id":        i.VodID.String(),
			"vod_name":      i.VodName,
			"vod_year":      i.VodYear,
			"vod_area":      i.VodArea,
			"vod_lang":      i.VodLang,
			"vod_actor":     i.VodActor,
			"vod_director":  i.VodDirector,
			"vod_writer":    i.VodWriter,
			"vod_content":   synopsis,
			"vod_class":     i.VodClass,
			"vod_remarks":   i.VodRemarks,
			"vod_pic":       i.VodPic,
			"vod_play_from": i.VodPlayFrom,
			"vod_play_url":  i.VodPlayURL,
			"type_id":       i.TypeID.String(),
			"type_name":     i.TypeName,
		},
	}
}

func listURL(base, category string, page int) string {
	u := fmt.Sprintf("%s?ac=videolist&pg=%d", strings.TrimSuffix(base, "/"), page)
	if category != "" {
		u += "&t=" + url.QueryEscape(category)
	}
	return u
}
