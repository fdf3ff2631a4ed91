package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonscope/harvest-cli/internal/model"
)

const detailPage = `<html>
<head><title>ヘアサロンABC 表参道｜ホットペッパービューティー</title></head>
<body>
<table class="slnDataTbl">
	<tr><th>住所</th><td>東京都渋谷区神宮前1-2-3</td></tr>
	<tr><th>アクセス・道案内</th><td>表参道駅から徒歩3分</td></tr>
	<tr><th>営業時間</th><td>10:00&nbsp;〜&nbsp;20:00</td></tr>
	<tr><th>定休日</th><td>毎週火曜日</td></tr>
	<tr><th>支払い方法</th><td>VISA／MasterCard</td></tr>
	<tr><th>カット価格</th><td>¥5,500</td></tr>
	<tr><th>スタッフ数</th><td>8人</td></tr>
	<tr><th>こだわり条件</th><td>駐車場あり</td></tr>
	<tr><th>備考</th><td>完全予約制</td></tr>
	<tr><th>その他</th><td>お子様連れ歓迎</td></tr>
	<tr><th>電話番号</th><td><a href="/tel/">番号を表示</a></td></tr>
	<tr><th>未知の行</th><td>ignored</td></tr>
</table>
</body></html>`

const phonePage = `<html><body>
<table class="wFull bdCell pCell10 mT15">
	<tr><th>サロン名</th><td>ヘアサロンABC</td></tr>
	<tr><th>電話番号</th><td>03-1234-5678</td></tr>
</table>
</body></html>`

func TestDetailExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slnH000000001/":
			fmt.Fprint(w, detailPage)
		case "/tel/":
			fmt.Fprint(w, phonePage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ex := NewDetailExtractor(testFetcher(), DefaultProfile())
	stub := model.ListingStub{Name: "listing name", URL: srv.URL + "/slnH000000001/", StableID: "1"}

	details, err := ex.Extract(context.Background(), stub)
	require.NoError(t, err)

	assert.Equal(t, "ヘアサロンABC 表参道", details.Name)
	assert.Equal(t, "1", details.StableID)
	assert.Equal(t, "東京都渋谷区神宮前1-2-3", details.Address)
	assert.Equal(t, "表参道駅から徒歩3分", details.Access)
	assert.Equal(t, "10:00 〜 20:00", details.BusinessHours)
	assert.Equal(t, "毎週火曜日", details.ClosedDays)
	assert.Equal(t, "VISA／MasterCard", details.PaymentMethods)
	assert.Equal(t, "¥5,500", details.CutPrice)
	assert.Equal(t, "8人", details.StaffCount)
	assert.Equal(t, "駐車場あり", details.Features)
	assert.Equal(t, "完全予約制", details.Remarks)
	assert.Equal(t, "お子様連れ歓迎", details.Other)
	require.NotNil(t, details.Phone)
	assert.Equal(t, "03-1234-5678", *details.Phone)
}

func TestDetailExtractInlinePhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>サロンX｜suffix</title></head><body>
		<table class="slnDataTbl">
			<tr><th>電話番号</th><td>03-9999-0000</td></tr>
		</table></body></html>`)
	}))
	defer srv.Close()

	ex := NewDetailExtractor(testFetcher(), DefaultProfile())
	details, err := ex.Extract(context.Background(), model.ListingStub{Name: "x", URL: srv.URL + "/", StableID: "N/A"})
	require.NoError(t, err)
	require.NotNil(t, details.Phone)
	assert.Equal(t, "03-9999-0000", *details.Phone)
}

func TestDetailExtractPhoneHopFailureLeavesNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tel/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, detailPage)
	}))
	defer srv.Close()

	ex := NewDetailExtractor(testFetcher(), DefaultProfile())
	details, err := ex.Extract(context.Background(), model.ListingStub{Name: "x", URL: srv.URL + "/", StableID: "1"})
	require.NoError(t, err)
	assert.Nil(t, details.Phone)
	assert.Equal(t, "東京都渋谷区神宮前1-2-3", details.Address)
}

func TestDetailExtractFetchFailureReturnsStubRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	stub := model.ListingStub{Name: "Ghost Salon", URL: srv.URL + "/gone/", StableID: "9"}
	ex := NewDetailExtractor(testFetcher(), DefaultProfile())

	details, err := ex.Extract(context.Background(), stub)
	require.Error(t, err)
	assert.Equal(t, "Ghost Salon", details.Name)
	assert.Equal(t, "9", details.StableID)
	assert.Empty(t, details.Address)
}
