// Package sigss implements the client for the SIGSS municipal health portal.
// It performs the two-step prontuário retrieval (param-hash generation, then
// the report page itself) and flattens the report HTML to plain text for the
// tagging engine. Authentication rides on the portal session cookie supplied
// by the caller; the client never logs in by itself.
package sigss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ErrSessionExpired is returned when the portal answers an HTML login page
// where JSON was expected, which is how SIGSS signals a lapsed session.
var ErrSessionExpired = errors.New("sessão SIGSS expirada")

// DefaultTimeout bounds one full prontuário retrieval.
const DefaultTimeout = 20 * time.Second

// portalDateFormat is the DD/MM/YYYY format the portal expects.
const portalDateFormat = "02/01/2006"

// Client talks to one SIGSS installation.
type Client struct {
	baseURL string
	http    *http.Client
	cookie  string
	logger  zerolog.Logger
}

// NewClient creates a portal client. The cookie string is forwarded verbatim
// on every request; timeout <= 0 selects DefaultTimeout.
func NewClient(baseURL, cookie string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cookie:  cookie,
		logger:  logger,
	}
}

// reportSections is the fixed section-selection query the prontuário report
// takes; everything except benefícios is requested, matching the sidebar.
const reportSections = "ppdc=t&consulta_basica=t&obs_enfermagem=t&encaminhamento=t" +
	"&consulta_especializada=t&consulta_odonto=t&exame_solicitado=t&exame=t&triagem=t" +
	"&procedimento=t&vacina=t&proc_odonto=t&medicamento_receitado=t&demais_orientacoes=t" +
	"&medicamento_retirado=t&aih=t&acs=t&lista_espera=t&beneficio=f&internacao=t&apac=t" +
	"&procedimento_coletivo=t&justificativa=&responsavelNome=&responsavelCPF=&isOdonto=t&isSoOdonto=f"

// FetchNoteText retrieves the concatenated plain text of the patient's
// visit history between from and to. patientID is the portal's encrypted
// patient key (isenFullPKCrypto).
func (c *Client) FetchNoteText(ctx context.Context, patientID string, from, to time.Time) (string, error) {
	hash, err := c.paramHash(ctx, patientID, from, to)
	if err != nil {
		return "", err
	}
	page, err := c.reportPage(ctx, hash)
	if err != nil {
		return "", err
	}
	return page, nil
}

// paramHashResponse is the JSON envelope of the hash endpoint. On success
// the hash arrives in "string"; on failure "mensagem" carries the reason.
type paramHashResponse struct {
	String   string `json:"string"`
	Mensagem string `json:"mensagem"`
}

func (c *Client) paramHash(ctx context.Context, patientID string, from, to time.Time) (string, error) {
	raw := fmt.Sprintf("isenFullPKCrypto=%s&moip_idp=4&moip_ids=1&dataInicial=%s&dataFinal=%s&%s",
		patientID, from.Format(portalDateFormat), to.Format(portalDateFormat), reportSections)
	body := "paramString=" + url.QueryEscape(raw)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/common/queryStrToParamHash", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("param hash request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkJSONResponse(resp); err != nil {
		return "", err
	}

	var out paramHashResponse
	if err := json.NewDecoder(responseReader(resp)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode param hash response: %w", err)
	}
	if out.String == "" {
		if out.Mensagem != "" {
			return "", fmt.Errorf("param hash refused: %s", out.Mensagem)
		}
		return "", fmt.Errorf("param hash response missing hash")
	}
	return out.String, nil
}

func (c *Client) reportPage(ctx context.Context, hash string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/prontuarioAmbulatorial2.jsp?paramHash="+url.QueryEscape(hash), nil)
	if err != nil {
		return "", err
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("prontuário request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("prontuário request: status %d", resp.StatusCode)
	}

	text, err := HTMLToText(responseReader(resp))
	if err != nil {
		return "", fmt.Errorf("extract prontuário text: %w", err)
	}
	return text, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

// checkJSONResponse classifies a response from an endpoint that should have
// answered JSON. SIGSS redirects lapsed sessions to an HTML login page.
func checkJSONResponse(resp *http.Response) error {
	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "text/html") {
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portal request: status %d", resp.StatusCode)
	}
	return nil
}

// responseReader decodes the body per the declared charset; the portal
// serves ISO-8859-1 on most endpoints.
func responseReader(resp *http.Response) io.Reader {
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "iso-8859-1") || strings.Contains(ct, "latin1") {
		return charmap.ISO8859_1.NewDecoder().Reader(resp.Body)
	}
	return resp.Body
}

// HTMLToText flattens a report page to the plain text a browser would show:
// script and style contents dropped, block boundaries as newlines.
func HTMLToText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return "", err
			}
			return b.String(), nil
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTag(tag) {
				skipDepth++
			}
			if tag == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTag(tag) && skipDepth > 0 {
				skipDepth--
			}
			if blockTag(tag) {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}
	}
}

func skipTag(name string) bool {
	return name == "script" || name == "style" || name == "head"
}

func blockTag(name string) bool {
	switch name {
	case "p", "div", "tr", "li", "table", "h1", "h2", "h3", "h4", "br":
		return true
	}
	return false
}
