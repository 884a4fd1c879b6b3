// Event simulator for local development. Posts synthetic infrastructure
// events to a running engine so the dashboard has data to show.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type event struct {
	Source    string         `json:"source"`
	EventType string         `json:"eventType"`
	Detail    map[string]any `json:"detail"`
}

var templates = map[string][]event{
	"ec2": {
		{
			Source:    "aws.ec2",
			EventType: "EC2 Instance State-change Notification",
			Detail: map[string]any{
				"instanceId":    "i-1234567890abcdef0",
				"state":         "terminated",
				"previousState": "running",
				"reason":        "User initiated",
			},
		},
		{
			Source:    "aws.ec2",
			EventType: "EC2 Instance State-change Notification",
			Detail: map[string]any{
				"instanceId":    "i-0987654321fedcba0",
				"state":         "stopped",
				"previousState": "running",
				"reason":        "Instance failure",
			},
		},
		{
			Source:    "aws.ec2",
			EventType: "EC2 Instance State-change Notification",
			Detail: map[string]any{
				"instanceId": "i-00aa11bb22cc33dd4",
				"state":      "stopping",
			},
		},
	},
	"rds": {
		{
			Source:    "aws.rds",
			EventType: "RDS DB Instance Failure",
			Detail: map[string]any{
				"sourceId":   "mydb-instance",
				"message":    "Database connection limit exceeded",
				"sourceType": "db-instance",
			},
		},
	},
	"lambda": {
		{
			Source:    "aws.lambda",
			EventType: "Lambda Function Invocation Result",
			Detail: map[string]any{
				"functionName": "my-critical-function",
				"errorType":    "TimeoutError",
				"errorMessage": "Task timed out after 30.00 seconds",
			},
		},
		{
			Source:    "aws.lambda",
			EventType: "Lambda Function Invocation Result",
			Detail: map[string]any{
				"functionName": "data-processor",
				"errorType":    "MemoryError",
				"errorMessage": "Process out of memory",
			},
		},
	},
	"s3": {
		{
			Source:    "aws.s3",
			EventType: "S3 Bucket Error",
			Detail: map[string]any{
				"bucketName":   "my-important-bucket",
				"eventName":    "s3:ObjectRemove:Delete",
				"errorCode":    "AccessDenied",
				"errorMessage": "Access Denied",
			},
		},
	},
	"cloudwatch": {
		{
			Source:    "aws.cloudwatch",
			EventType: "CloudWatch Alarm State Change",
			Detail: map[string]any{
				"alarmName": "HighCPUUtilization",
				"state": map[string]any{
					"value":  "ALARM",
					"reason": "Threshold Crossed: 1 datapoint [95.0] was greater than the threshold (80.0)",
				},
				"previousState": map[string]any{"value": "OK"},
			},
		},
	},
	"autoscaling": {
		{
			Source:    "aws.autoscaling",
			EventType: "EC2 Instance Launch Successful",
			Detail: map[string]any{
				"autoScalingGroupName": "web-asg",
				"activityId":           "activity-0001",
			},
		},
	},
}

func pick(kind string) (event, error) {
	if kind == "random" {
		kinds := make([]string, 0, len(templates))
		for k := range templates {
			kinds = append(kinds, k)
		}
		kind = kinds[rand.Intn(len(kinds))]
	}
	candidates, ok := templates[kind]
	if !ok {
		return event{}, fmt.Errorf("unknown event type %q", kind)
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func send(target string, ev event) error {
	ev.Detail["simulationId"] = fmt.Sprintf("sim-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	resp, err := http.Post(target+"/events", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func main() {
	var (
		target = flag.String("target", "http://localhost:8080", "Engine base URL")
		kind   = flag.String("type", "random", "Event type: ec2, rds, lambda, s3, cloudwatch, autoscaling or random")
		count  = flag.Int("count", 1, "Number of events to send")
		delay  = flag.Duration("delay", 2*time.Second, "Delay between events")
	)
	flag.Parse()

	for i := 0; i < *count; i++ {
		ev, err := pick(*kind)
		if err != nil {
			log.Fatal(err)
		}
		if err := send(*target, ev); err != nil {
			log.Printf("event %d/%d failed: %v", i+1, *count, err)
		} else {
			log.Printf("event %d/%d sent: %s %s", i+1, *count, ev.Source, ev.EventType)
		}
		if i < *count-1 {
			time.Sleep(*delay)
		}
	}
}
