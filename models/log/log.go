package log

import (
	"time"
)

// Log represents an HTTP request/response audit entry.
type Log struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Method          string    `gorm:"type:varchar(10);not null" bson:"method" json:"method"`
	URL             string    `gorm:"type:text;not null" bson:"url" json:"url"`
	RequestBody     string    `gorm:"type:text" bson:"requestBody" json:"request_body"`
	RequestHeaders  string    `gorm:"type:text" bson:"requestHeaders" json:"request_headers"`
	ResponseBody    string    `gorm:"type:text" bson:"responseBody" json:"response_body"`
	ResponseHeaders string    `gorm:"type:text" bson:"responseHeaders" json:"response_headers"`
	StatusCode      int       `gorm:"type:int;index" bson:"statusCode" json:"status_code"`
	CreatedAt       time.Time `gorm:"index" bson:"createdAt" json:"created_at"`
}
