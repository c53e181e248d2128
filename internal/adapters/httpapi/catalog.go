package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"printvault/internal/application"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
)

type scanArmyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*domain.ArmyScan
}

type scanAllResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*domain.ScanSummary
}

func (s *Server) scanArmy(c *gin.Context) {
	start := time.Now()
	result, err := commands.NewScanArmyCommand(s.opts.Reconciler, c.Param("armyId")).Execute(c.Request.Context())
	s.metrics.ObserveScan("army", err, time.Since(start))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, scanArmyResponse{Success: true, Message: result.Message, ArmyScan: result.Scan})
}

func (s *Server) scanAll(c *gin.Context) {
	start := time.Now()
	result, err := commands.NewScanAllCommand(s.opts.Reconciler).Execute(c.Request.Context())
	s.metrics.ObserveScan("all", err, time.Since(start))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, scanAllResponse{Success: true, Message: result.Message, ScanSummary: result.Summary})
}

func (s *Server) listArmies(c *gin.Context) {
	armies, err := commands.NewListArmiesCommand(s.opts.Catalog).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"armies": armies})
}

func (s *Server) getArmy(c *gin.Context) {
	army, err := commands.NewGetArmyCommand(s.opts.Catalog, c.Param("armyId")).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, army)
}

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, &application.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)})
		return false
	}
	return true
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (s *Server) upsertArmy(c *gin.Context) {
	var army domain.Army
	if !bindBody(c, &army) {
		return
	}
	result, err := commands.NewUpsertArmyCommand(s.opts.Catalog, c.Param("armyId"), army).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(createdStatus(result.Created), gin.H{
		"success": true,
		"message": result.Message,
		"created": result.Created,
		"army":    result.Army,
	})
}

func (s *Server) upsertUnit(c *gin.Context) {
	var unit domain.Unit
	if !bindBody(c, &unit) {
		return
	}
	result, err := commands.NewUpsertUnitCommand(s.opts.Catalog, c.Param("armyId"), c.Param("unitId"), unit).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(createdStatus(result.Created), gin.H{
		"success": true,
		"message": result.Message,
		"created": result.Created,
		"unit":    result.Unit,
	})
}

// deleteUnit removes the catalog record only; stored files stay.
func (s *Server) deleteUnit(c *gin.Context) {
	result, err := commands.NewDeleteUnitCommand(s.opts.Catalog, c.Param("armyId"), c.Param("unitId")).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Success: true, Message: result.Message})
}

func (s *Server) removeFileEntry(c *gin.Context) {
	result, err := commands.NewRemoveFileEntryCommand(s.opts.Catalog, c.Param("armyId"), c.Param("unitId"), c.Param("filename")).Execute(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Success: true, Message: result.Message})
}
