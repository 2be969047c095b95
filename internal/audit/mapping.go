package audit

import "strings"

// MethodInfo is the audit classification of a gRPC method: which business
// module it belongs to, the verb, and whether it mutates state.
type MethodInfo struct {
	Module   string
	Action   string
	Mutation bool
}

// ParseFullMethod classifies a gRPC full method name, e.g.
// /classtrack.attendance.v1.AttendanceService/CreateAttendance yields
// module "attendance", action "create", mutation true. Unrecognized shapes
// map to module/action "unknown" and are treated as reads.
func ParseFullMethod(fullMethod string) MethodInfo {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return MethodInfo{Module: "unknown", Action: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	module := "unknown"
	if dot >= 0 {
		module = serviceToModule(beforeSlash[dot+1:])
	}
	action, mutation := methodToAction(method)
	return MethodInfo{Module: module, Action: action, Mutation: mutation}
}

func serviceToModule(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s)
}

func methodToAction(method string) (string, bool) {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get", false
	case strings.HasPrefix(method, "List"):
		return "list", false
	case strings.HasPrefix(method, "Create"):
		return "create", true
	case strings.HasPrefix(method, "Update"):
		return "update", true
	case strings.HasPrefix(method, "Delete"):
		return "delete", true
	case strings.HasPrefix(method, "Revoke"):
		return "revoke", true
	case method == "":
		return "unknown", false
	default:
		return strings.ToLower(method), false
	}
}
