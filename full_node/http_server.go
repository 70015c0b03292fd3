package full_node

import (
	"net/http"
	"strconv"

	"github.com/Luismorlan/vehicle_ledger/network"
	"github.com/gin-gonic/gin"
)

// NewHTTPHandler returns the read-only status API of a node.
func NewHTTPHandler(sev *FullNodeServer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "id": sev.FullNode().ID()})
	})

	r.GET("/chain", func(c *gin.Context) {
		chain := sev.FullNode().Chain()
		if from := c.Query("from"); from != "" {
			i, err := strconv.Atoi(from)
			if err != nil || i < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a positive block index"})
				return
			}
			if i > len(chain) {
				i = len(chain) + 1
			}
			chain = chain[i-1:]
		}
		c.JSON(http.StatusOK, gin.H{"height": sev.FullNode().Height(), "blocks": chain})
	})

	// Same payload a peer gets for GET_BLOCKCHAIN.
	r.GET("/chain/raw", func(c *gin.Context) {
		data, err := network.EncodeChain(sev.FullNode().Chain())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	})

	r.GET("/vehicles", func(c *gin.Context) {
		c.JSON(http.StatusOK, sev.FullNode().Vehicles())
	})

	r.GET("/vehicles/:owner", func(c *gin.Context) {
		v, ok := sev.FullNode().Vehicle(c.Param("owner"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		stop, _ := sev.FullNode().CurrentLocation(v.Owner)
		c.JSON(http.StatusOK, gin.H{"vehicle": v, "current_stop": stop})
	})

	r.GET("/peers", func(c *gin.Context) {
		c.JSON(http.StatusOK, sev.Peers())
	})

	return r
}
