package notifier

import (
	"fmt"
	"strings"

	"crew-radar/internal/model"
)

// summary 返回单行职位摘要：标题、公司、部门与船型、地点。
func summary(job model.Job) string {
	var b strings.Builder
	b.WriteString(job.Title)
	if job.Company != "" {
		b.WriteString(" @ " + job.Company)
	}
	b.WriteString(fmt.Sprintf(" [%s/%s]", job.Department, job.VesselType))
	if job.Location != "" {
		b.WriteString(" " + job.Location)
	}
	return b.String()
}

// limitJobs 截取前 n 条，返回剩余数量。
func limitJobs(jobs []model.Job, n int) ([]model.Job, int) {
	if n <= 0 || len(jobs) <= n {
		return jobs, 0
	}
	return jobs[:n], len(jobs) - n
}
