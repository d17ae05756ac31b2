package s1_universe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
)

const constituentsCSV = "\ufeffCompany Name,Industry,Symbol,Series,ISIN Code\n" +
	"Reliance Industries Ltd.,Oil Gas,RELIANCE,EQ,INE002A01018\n" +
	"Tata Consultancy Services Ltd.,IT,TCS,EQ,INE467B01029\n" +
	"Infosys Ltd.,IT,infy,EQ,INE009A01021\n" +
	"Duplicate,IT,TCS,EQ,INE467B01029\n"

const constituentsHTML = `<html><body>
<table id="nav"><tr><th>Menu</th></tr><tr><td>Home</td></tr></table>
<table class="constituents">
  <tr><th>Company</th><th>Symbol</th><th>Weight</th></tr>
  <tr><td>HDFC Bank</td><td> HDFCBANK </td><td>8.1</td></tr>
  <tr><td>ICICI Bank</td><td>ICICIBANK</td><td>5.2</td></tr>
</table>
</body></html>`

func testHTTP() *httputil.Client {
	return httputil.New(&config.Config{Fetch: config.FetchConfig{Timeout: 2 * time.Second}}, logger.Nop())
}

func serve(status int, contentType, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
}

func TestRefresh_PrimaryCSV(t *testing.T) {
	primary := serve(http.StatusOK, "text/csv", constituentsCSV)
	defer primary.Close()

	path := filepath.Join(t.TempDir(), "data", "universe.txt")
	res, err := NewRefresher(testHTTP(), path, logger.Nop(), primary.URL, "").Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, primary.URL, res.Source)
	assert.Equal(t, []string{"INFY", "RELIANCE", "TCS"}, res.Symbols)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "INFY\nRELIANCE\nTCS\n", string(data))
}

func TestRefresh_FallsBackAndParsesHTML(t *testing.T) {
	primary := serve(http.StatusForbidden, "", "denied")
	defer primary.Close()
	fallback := serve(http.StatusOK, "text/html; charset=utf-8", constituentsHTML)
	defer fallback.Close()

	path := filepath.Join(t.TempDir(), "universe.txt")
	require.NoError(t, os.WriteFile(path, []byte("HDFCBANK\nOLDCO\n"), 0o644))

	res, err := NewRefresher(testHTTP(), path, logger.Nop(), primary.URL, fallback.URL).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallback.URL, res.Source)
	assert.Equal(t, []string{"HDFCBANK", "ICICIBANK"}, res.Symbols)
	assert.Equal(t, []string{"ICICIBANK"}, res.Added)
	assert.Equal(t, []string{"OLDCO"}, res.Removed)
}

func TestRefresh_AllSourcesFailKeepsFile(t *testing.T) {
	bad := serve(http.StatusOK, "text/csv", "Name,Series\nfoo,EQ\n")
	defer bad.Close()
	down := serve(http.StatusNotFound, "", "")
	defer down.Close()

	path := filepath.Join(t.TempDir(), "universe.txt")
	require.NoError(t, os.WriteFile(path, []byte("KEEP\n"), 0o644))

	_, err := NewRefresher(testHTTP(), path, logger.Nop(), bad.URL, down.URL).Refresh(context.Background())
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "KEEP\n", string(data))
}

func TestRefresh_NoSources(t *testing.T) {
	_, err := NewRefresher(testHTTP(), "x.txt", logger.Nop()).Refresh(context.Background())
	assert.Error(t, err)
}

func TestParseHTMLTable_NoTable(t *testing.T) {
	_, err := parseHTMLTable([]byte("<html><body><p>maintenance</p></body></html>"))
	assert.Error(t, err)
}
