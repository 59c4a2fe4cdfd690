package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeDashboardExport = "dashboard:export"
)

// DashboardExportPayload 描述导出一份仪表盘 PDF 所需的最小信息。
type DashboardExportPayload struct {
	ExportID      uint   `json:"export_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewDashboardExportTask 构造一个新的仪表盘导出任务。
func NewDashboardExportTask(exportID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DashboardExportPayload{
		ExportID:      exportID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDashboardExport, payload), nil
}
