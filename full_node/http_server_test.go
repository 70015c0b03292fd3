package full_node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Luismorlan/vehicle_ledger/model"
	"github.com/Luismorlan/vehicle_ledger/network"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestHTTPHealth(t *testing.T) {
	node := newTestNode(t, nil)
	h := NewHTTPHandler(newTestServer(t, node))

	w := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, node.ID(), body["id"])
}

func TestHTTPChain(t *testing.T) {
	node := newStakedNode(t)
	_, err := node.MineNext(context.Background())
	require.NoError(t, err)
	h := NewHTTPHandler(newTestServer(t, node))

	var body struct {
		Height int            `json:"height"`
		Blocks []*model.Block `json:"blocks"`
	}
	w := get(t, h, "/chain")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Height)
	assert.Equal(t, node.Chain(), body.Blocks)

	w = get(t, h, "/chain?from=2")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Blocks, 1)
	assert.Equal(t, int64(2), body.Blocks[0].Index)

	w = get(t, h, "/chain?from=10")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Blocks)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/chain?from=zero").Code)

	w = get(t, h, "/chain/raw")
	chain, err := network.DecodeChain(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestHTTPVehicles(t *testing.T) {
	node := newStakedNode(t)
	require.True(t, node.RegisterVehicle("V0", "ABC000", 5000))
	h := NewHTTPHandler(newTestServer(t, node))

	var vehicles []model.VehicleState
	w := get(t, h, "/vehicles")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vehicles))
	require.Len(t, vehicles, 2)
	assert.Equal(t, "V0", vehicles[0].Owner)
	assert.Equal(t, "V1", vehicles[1].Owner)

	var one struct {
		Vehicle     model.VehicleState `json:"vehicle"`
		CurrentStop string             `json:"current_stop"`
	}
	w = get(t, h, "/vehicles/V1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, 1, one.Vehicle.Stake)
	assert.Equal(t, "LocationA", one.CurrentStop)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/vehicles/nobody").Code)
}

func TestHTTPPeers(t *testing.T) {
	sev := newTestServer(t, newTestNode(t, nil))
	sev.AddPeer("localhost:5001")
	h := NewHTTPHandler(sev)

	var peers []string
	require.NoError(t, json.Unmarshal(get(t, h, "/peers").Body.Bytes(), &peers))
	assert.Equal(t, []string{"localhost:5001"}, peers)
}
