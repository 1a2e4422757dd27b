package apiclient

import (
	"context"
	"net/http"
)

// ListActivities returns every activity visible to the caller.
func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	var activities []Activity
	if err := c.getJSON(ctx, "/activities", nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// ActivityDetails fetches a single activity.
func (c *Client) ActivityDetails(ctx context.Context, id string) (Activity, error) {
	var activity Activity
	if err := c.getJSON(ctx, "/activities/"+id, nil, &activity); err != nil {
		return Activity{}, err
	}
	return activity, nil
}

// CreateActivity creates a new activity. The ID is chosen by the caller.
func (c *Client) CreateActivity(ctx context.Context, activity Activity) error {
	return c.sendJSON(ctx, http.MethodPost, "/activities", activity, nil)
}

// UpdateActivity replaces an existing activity.
func (c *Client) UpdateActivity(ctx context.Context, activity Activity) error {
	return c.sendJSON(ctx, http.MethodPut, "/activities/"+activity.ID, activity, nil)
}

// DeleteActivity removes an activity.
func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/activities/"+id, nil, nil)
}

// AttendActivity registers the caller as an attendee.
func (c *Client) AttendActivity(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodPost, "/activities/"+id+"/attend", nil, nil)
}

// UnattendActivity removes the caller from the attendee list.
func (c *Client) UnattendActivity(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/activities/"+id+"/attend", nil, nil)
}
