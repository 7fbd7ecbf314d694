package outbox

const activityLoggedSchema = `{
  "type": "object",
  "title": "ActivityLogged",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "title": {"type": "string"},
    "category": {"type": "string"},
    "duration_minutes": {"type": "integer"},
    "action": {"type": "string", "enum": ["created", "updated", "deleted"]},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "user_id", "date", "title", "duration_minutes", "action", "occurred_at"],
  "additionalProperties": false
}`

const dayTotalChangedSchema = `{
  "type": "object",
  "title": "DayTotalChanged",
  "properties": {
    "day_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "total_minutes": {"type": "integer", "minimum": 0, "maximum": 1440},
    "remaining_minutes": {"type": "integer", "minimum": 0, "maximum": 1440},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["day_id", "user_id", "date", "total_minutes", "remaining_minutes", "occurred_at"],
  "additionalProperties": false
}`
