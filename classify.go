package gmysql

// classifyErrorNumber maps a MySQL server error number (the Number field
// of an ERR packet) to the error taxonomy. Ranges follow the conventional
// MySQL server error numbers used across the client-library ecosystem:
// duplicate-key and foreign-key violations become IntegrityError,
// data-truncation/out-of-range/conversion errors become DataError,
// everything else server-side is a plain DatabaseError.
//
// Grounded on the code ranges documented in the original Python driver's
// errors.py (referenced from connection.py's errors.get_exception, not
// itself part of the retrieved original_source file set) and on the
// standard MySQL server error-message catalog (errmsg.sys numbers
// 1000-1999 for "server" errors).
func classifyErrorNumber(number uint16) Kind {
	switch number {
	case 1022, 1048, 1052, 1062, 1169, 1216, 1217, 1364, 1451, 1452, 1557, 1586:
		// ER_DUP_KEY, ER_BAD_NULL_ERROR, ER_NON_UNIQ_ERROR, ER_DUP_ENTRY,
		// ER_DUP_UNIQUE, ER_NO_REFERENCED_ROW, ER_ROW_IS_REFERENCED,
		// ER_NO_DEFAULT_FOR_FIELD, ER_ROW_IS_REFERENCED_2,
		// ER_NO_REFERENCED_ROW_2, ER_DUP_ENTRY_WITH_KEY_NAME, ER_DUP_UNKNOWN_IN_INDEX
		return KindIntegrity
	case 1264, 1265, 1292, 1366, 1406, 1416, 1441, 1461:
		// ER_WARN_DATA_OUT_OF_RANGE, ER_WARN_DATA_TRUNCATED,
		// ER_TRUNCATED_WRONG_VALUE, ER_TRUNCATED_WRONG_VALUE_FOR_FIELD,
		// ER_DATA_TOO_LONG, ER_CUT_VALUE_GROUP_CONCAT, ER_DATETIME_FUNCTION_OVERFLOW,
		// ER_MAX_PREPARED_STMT_COUNT_REACHED
		return KindData
	default:
		return KindDatabase
	}
}
