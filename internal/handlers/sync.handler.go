package handlers

import (
	"time"

	"github.com/fasthttp/router"

	xhttp "github.com/bhadrakali/chit-ledger/pkg/http"
)

// SyncService exposes the background reconciliation state machine.
type SyncService interface {
	Dirty() bool
	Syncing() bool
	SyncNow()
}

// SnapshotService exposes whole-dataset export and restore.
type SnapshotService interface {
	LastUpdated() time.Time
	Export() ([]byte, error)
	Restore(blob []byte) error
}

type SyncHandler struct {
	sync SyncService
	snap SnapshotService
}

func NewSyncHandler(sync SyncService, snap SnapshotService) *SyncHandler {
	return &SyncHandler{
		sync: sync,
		snap: snap,
	}
}

func RegisterSyncRoutes(e *router.Group, h *SyncHandler) {
	e.GET("/sync/status", h.Status)
	e.POST("/sync/trigger", h.Trigger)
	e.GET("/backup", h.Backup)
	e.POST("/restore", h.Restore)
}

type syncStatusResponse struct {
	Dirty       bool      `json:"dirty"`
	Syncing     bool      `json:"syncing"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (h *SyncHandler) Status(ctx *xhttp.RequestCtx) {
	resp := syncStatusResponse{LastUpdated: h.snap.LastUpdated()}
	if h.sync != nil {
		resp.Dirty = h.sync.Dirty()
		resp.Syncing = h.sync.Syncing()
	}
	writeJSON(ctx, 200, resp)
}

func (h *SyncHandler) Trigger(ctx *xhttp.RequestCtx) {
	if h.sync == nil {
		writeError(ctx, 503, "sync is not configured")
		return
	}
	h.sync.SyncNow()
	writeJSON(ctx, 202, map[string]string{"status": "sync scheduled"})
}

func (h *SyncHandler) Backup(ctx *xhttp.RequestCtx) {
	blob, err := h.snap.Export()
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="chit-ledger-backup.json"`)
	ctx.Response.SetStatusCode(200)
	ctx.Response.SetBodyRaw(blob)
}

func (h *SyncHandler) Restore(ctx *xhttp.RequestCtx) {
	blob := ctx.PostBody()
	if len(blob) == 0 {
		writeError(ctx, 400, "request body must be a dataset export")
		return
	}
	if err := h.snap.Restore(blob); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "restored"})
}
