package search

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hyperifyio/gosummarize/internal/errs"
)

func httpClientOrDefault(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// doJSON sends req once and decodes a 2xx JSON body into out.
func doJSON(hc *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := httpClientOrDefault(hc).Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, errs.StageSearch, err, req.URL.Host)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errs.Upstream(errs.StageSearch, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.KindBadUpstreamResponse, errs.StageSearch, err, "decode search response")
	}
	return nil
}
